// Package hwmon lists the temperature inputs of the host, which can be read
// by TempSensorFile objects.
package hwmon

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/md14454/gosensors"
)

const (
	BusTypeIsa  = 1
	BusTypePci  = 2
	BusTypeAcpi = 5
)

type Chip struct {
	Name     string
	Platform string
	Path     string

	Inputs []*TempInput
}

// TempInput is a sysfs file holding a temperature in millidegrees.
type TempInput struct {
	Label string
	Index int
	Path  string
	Value float64
	Max   float64
	Min   float64
}

// GetChips returns all detected chips that have at least one temperature
// input.
func GetChips() []*Chip {
	gosensors.Init()
	defer gosensors.Cleanup()
	chips := gosensors.GetDetectedChips()

	var list []*Chip
	for _, chip := range chips {
		inputs := tempInputs(chip)
		if len(inputs) <= 0 {
			continue
		}

		identifier := computeIdentifier(chip)
		platform := findPlatform(chip.Path)
		if len(platform) <= 0 {
			platform = identifier
		}

		list = append(list, &Chip{
			Name:     identifier,
			Platform: platform,
			Path:     chip.Path,
			Inputs:   inputs,
		})
	}
	return list
}

func tempInputs(chip gosensors.Chip) []*TempInput {
	var inputs []*TempInput

	for _, feature := range chip.GetFeatures() {
		if feature.Type != gosensors.FeatureTypeTemp {
			continue
		}

		subfeatures := feature.GetSubFeatures()
		input, ok := getSubFeature(subfeatures, gosensors.SubFeatureTypeTempInput)
		if !ok {
			continue
		}

		max := -1.0
		if sub, ok := getSubFeature(subfeatures, gosensors.SubFeatureTypeTempMax); ok {
			max = sub.GetValue()
		}
		min := -1.0
		if sub, ok := getSubFeature(subfeatures, gosensors.SubFeatureTypeTempMin); ok {
			min = sub.GetValue()
		}

		inputs = append(inputs, &TempInput{
			Label: getLabel(chip.Path, input.Name),
			Index: len(inputs) + 1,
			Path:  fmt.Sprintf("%s/%s", chip.Path, input.Name),
			Value: input.GetValue(),
			Max:   max,
			Min:   min,
		})
	}
	return inputs
}

func getSubFeature(subfeatures []gosensors.SubFeature, input gosensors.SubFeatureType) (gosensors.SubFeature, bool) {
	for _, a := range subfeatures {
		if a.Type == input {
			return a, true
		}
	}
	return gosensors.SubFeature{}, false
}

// getLabel read the label of a in/output of a device
func getLabel(devicePath string, input string) string {
	labelPath := strings.TrimSuffix(devicePath+"/"+input, "input") + "label"

	content, _ := os.ReadFile(labelPath)
	label := string(content)
	if len(label) <= 0 {
		_, label = filepath.Split(devicePath)
	}
	return strings.TrimSpace(label)
}

// getDeviceName read the name of a device
func getDeviceName(devicePath string) string {
	content, _ := os.ReadFile(devicePath + "/name")
	return strings.TrimSpace(string(content))
}

func computeIdentifier(chip gosensors.Chip) (name string) {
	name = chip.Prefix

	devicePath := chip.Path
	if len(name) <= 0 {
		name = getDeviceName(devicePath)
	}

	if len(name) <= 0 {
		_, name = filepath.Split(devicePath)
	}

	identifier := name
	switch chip.Bus.Type {
	case BusTypeIsa:
		identifier = fmt.Sprintf("%s-isa-%d%03x", identifier, chip.Bus.Nr, chip.Addr)
	case BusTypePci:
		identifier = fmt.Sprintf("%s-pci-%d%03x", identifier, chip.Bus.Nr, chip.Addr)
	case BusTypeAcpi:
		identifier = fmt.Sprintf("%s-acpi-%d", identifier, chip.Bus.Nr)
	}

	return identifier
}

func findPlatform(devicePath string) string {
	platformRegex := regexp.MustCompile(".*/platform/{}/.*")
	return platformRegex.FindString(devicePath)
}
