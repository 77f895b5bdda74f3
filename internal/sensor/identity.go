package sensor

import "strings"

// components groups chip name prefixes by the part of the machine they
// measure. Prefixes are hwmon driver names (what lm-sensors prints and what
// /sys/class/hwmon/*/name holds) plus the chip names of the nvidia-smi,
// smartctl and demo sources. The first matching prefix wins.
var components = []struct {
	name     string
	prefixes []string
}{
	{"CPU", []string{"coretemp", "k10temp", "k8temp", "zenpower", "cpu_thermal", "soc_thermal", "x86_pkg_temp"}},
	{"GPU (NVIDIA)", []string{"nvidia-gpu", "nouveau"}},
	{"GPU (AMD)", []string{"amdgpu", "radeon"}},
	{"GPU (Intel)", []string{"i915", "xe-pci"}},
	{"GPU", []string{"gpu_thermal"}},
	{"NVMe SSD", []string{"nvme"}},
	{"HDD/SSD", []string{"drivetemp", "smart-"}},
	{"Memory", []string{"spd5118", "jc42", "ee1004"}},
	{"WiFi", []string{"iwlwifi", "ath9k", "ath1", "mt7", "rtw"}},
	{"Ethernet", []string{"r8169", "igc", "ixgbe"}},
	{"PCH (Chipset)", []string{"pch_"}},
	{"ACPI Thermal", []string{"acpitz"}},
	{"Motherboard", []string{"it8", "nct6", "w83", "f71", "asus"}},
	{"Laptop EC", []string{"thinkpad", "dell_smm", "applesmc", "hp"}},
	{"Battery", []string{"bat"}},
	{"Demo", []string{"demo-"}},
}

// FriendlyName returns a human-readable component name for a chip ID.
func FriendlyName(chip string) string {
	lower := strings.ToLower(chip)
	for _, c := range components {
		for _, prefix := range c.prefixes {
			if strings.HasPrefix(lower, prefix) {
				return c.name
			}
		}
	}
	return "Sensor"
}
