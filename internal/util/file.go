package util

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ReadIntFromFile reads a single integer, as written by sysfs attributes.
func ReadIntFromFile(path string) (value int, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return -1, err
	}
	text := strings.TrimSpace(string(data))
	if len(text) <= 0 {
		return -1, fmt.Errorf("file is empty: %s", path)
	}
	value, err = strconv.Atoi(text)
	return value, err
}
