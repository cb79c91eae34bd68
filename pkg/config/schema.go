package config

import (
	"github.com/invopop/jsonschema"
)

// Schema returns the JSON Schema of Config, for editor completion and
// config validation tooling.
func Schema() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}

	schema := reflector.Reflect(&Config{})
	schema.ID = "https://github.com/kadirpekel/memchat/schemas/config.json"
	schema.Title = "memchat configuration"
	schema.Description = "Configuration schema for the memchat server and CLI"
	schema.Version = "http://json-schema.org/draft-07/schema#"
	return schema
}
