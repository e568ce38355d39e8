package models

// SubEntityConfig is the parsed form of a process's sub-entity
// configuration blob. The stored shape is never assumed: reads go
// through ParseSubEntityConfig, writes through ToJSONB.
type SubEntityConfig struct {
	TasksEnabled bool `json:"tasks_enabled"`
}

// ParseSubEntityConfig interprets the opaque JSONB blob. Task
// management defaults to enabled when the blob is absent or the key
// is missing; only an explicit false disables it.
func ParseSubEntityConfig(j JSONB) SubEntityConfig {
	cfg := SubEntityConfig{TasksEnabled: true}
	if j == nil {
		return cfg
	}
	if v, ok := j["tasks_enabled"]; ok {
		if b, ok := v.(bool); ok {
			cfg.TasksEnabled = b
		}
	}
	return cfg
}

// ToJSONB serializes the config for storage.
func (c SubEntityConfig) ToJSONB() JSONB {
	return JSONB{"tasks_enabled": c.TasksEnabled}
}
