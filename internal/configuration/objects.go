package configuration

// ObjectConfig describes an object that is created at first boot, when the
// storage holds no objects yet.
type ObjectConfig struct {
	Id     int       `json:"id"`
	Type   string    `json:"type"`
	Groups GroupMask `json:"groups"`
	// Data uses the payload field names of the block type.
	Data map[string]interface{} `json:"data"`
}
