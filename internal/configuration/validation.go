package configuration

import (
	"fmt"
	"sort"
	"strings"

	"github.com/looplab/tarjan"
	"golang.org/x/exp/slices"

	"github.com/markusressel/controlbox/internal/blocks"
	"github.com/markusressel/controlbox/internal/cbox"
	"github.com/markusressel/controlbox/internal/codec"
	"github.com/markusressel/controlbox/internal/ui"
)

func Validate(configPath string) error {
	return validateConfig(&CurrentConfig, configPath)
}

func validateConfig(config *Configuration, path string) error {
	if err := validateSettings(config); err != nil {
		return err
	}
	return validateObjects(config)
}

func validateSettings(config *Configuration) error {
	supportedStorage := []string{StorageBolt, StorageFile, StorageMemory}
	if !slices.Contains(supportedStorage, config.Storage.Type) {
		return fmt.Errorf("unsupported storage type '%s', use one of: %s", config.Storage.Type, strings.Join(supportedStorage, " | "))
	}
	if config.Storage.Type == StorageFile && len(config.Storage.Dir) <= 0 {
		return fmt.Errorf("storage: no directory provided for file storage")
	}
	if config.Storage.Type == StorageBolt && len(config.DbPath) <= 0 {
		return fmt.Errorf("dbPath: no database path provided")
	}
	if config.UpdateInterval <= 0 {
		return fmt.Errorf("updateInterval: must be > 0, was %v", config.UpdateInterval)
	}
	if config.StartId <= int(blocks.TicksID) || config.StartId > 0xFFFF {
		return fmt.Errorf("startId: must be in %d..65535, was %d", blocks.TicksID+1, config.StartId)
	}
	if config.MaxObjects < 0 {
		return fmt.Errorf("maxObjects: must be >= 0, was %d", config.MaxObjects)
	}
	if config.ActiveGroups == 0 {
		ui.Warning("activeGroups: no group is active, only system objects will run")
	}
	if config.Connections.Serial.Enabled {
		if len(config.Connections.Serial.Port) <= 0 {
			return fmt.Errorf("connections.serial: no port provided")
		}
		if config.Connections.Serial.BaudRate <= 0 {
			return fmt.Errorf("connections.serial: invalid baud rate %d", config.Connections.Serial.BaudRate)
		}
	}
	if config.Mqtt.Enabled && len(config.Mqtt.Topic) <= 0 {
		return fmt.Errorf("mqtt: no topic provided")
	}
	return nil
}

func validateObjects(config *Configuration) error {
	typeNames := blocks.TypeNames(nil)
	ids := map[int]bool{}
	graph := make(map[interface{}][]interface{})

	for _, object := range config.Objects {
		if object.Id < config.StartId || object.Id > 0xFFFF {
			return fmt.Errorf("Object %d: id must be in %d..65535", object.Id, config.StartId)
		}
		if ids[object.Id] {
			return fmt.Errorf("Object %d: duplicate id", object.Id)
		}
		ids[object.Id] = true

		typeID, ok := typeNames[object.Type]
		if !ok || typeID <= blocks.TicksType {
			return fmt.Errorf("Object %d: unsupported type '%s', use one of: %s", object.Id, object.Type, strings.Join(userTypeNames(typeNames), " | "))
		}
		if object.Groups == 0 {
			ui.Warning("Object %d: no groups, the object will never be active", object.Id)
		}
		if _, err := codec.FromMap(dataOf(object)); err != nil {
			return fmt.Errorf("Object %d: invalid data: %v", object.Id, err)
		}

		var connections []interface{}
		for _, ref := range References(dataOf(object)) {
			if ref == object.Id {
				return fmt.Errorf("Object %d: an object cannot reference itself", object.Id)
			}
			connections = append(connections, ref)
		}
		graph[object.Id] = connections
	}

	for _, object := range config.Objects {
		for _, ref := range graph[object.Id] {
			id := ref.(int)
			if !ids[id] && id >= config.StartId {
				ui.Warning("Object %d: references object %d, which is not configured", object.Id, id)
			}
		}
	}

	return validateNoLoops(graph)
}

func dataOf(object ObjectConfig) map[string]interface{} {
	if object.Data == nil {
		return map[string]interface{}{}
	}
	return object.Data
}

func userTypeNames(typeNames map[string]cbox.TypeID) []string {
	var names []string
	for name, typeID := range typeNames {
		if typeID > blocks.TicksType {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// References returns the ids of all objects referenced by the payload data
// of an object, including references in nested lists.
func References(data map[string]interface{}) []int {
	var result []int
	collectReferences(data, &result)
	sort.Ints(result)
	return slices.Compact(result)
}

func collectReferences(data interface{}, result *[]int) {
	switch value := data.(type) {
	case map[string]interface{}:
		for key, item := range value {
			switch {
			case containsFold(blocks.ReferenceFields, key):
				if id, err := anyToInt(item); err == nil && id > 0 {
					*result = append(*result, id)
				}
			case containsFold(blocks.ReferenceListFields, key):
				if list, ok := item.([]interface{}); ok {
					for _, element := range list {
						if id, err := anyToInt(element); err == nil && id > 0 {
							*result = append(*result, id)
						}
					}
				}
			default:
				collectReferences(item, result)
			}
		}
	case map[interface{}]interface{}:
		converted := make(map[string]interface{}, len(value))
		for key, item := range value {
			if s, ok := key.(string); ok {
				converted[s] = item
			}
		}
		collectReferences(converted, result)
	case []interface{}:
		for _, item := range value {
			collectReferences(item, result)
		}
	}
}

// containsFold matches case-insensitively, viper lowercases map keys.
func containsFold(names []string, key string) bool {
	for _, name := range names {
		if strings.EqualFold(name, key) {
			return true
		}
	}
	return false
}

func validateNoLoops(graph map[interface{}][]interface{}) error {
	output := tarjan.Connections(graph)
	for _, items := range output {
		if len(items) > 1 {
			return fmt.Errorf("You have created an object dependency cycle: %v", items)
		}
	}
	return nil
}
