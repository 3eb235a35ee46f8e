package conf

// Catalog declares the entities a deployment expects to exist.
type Catalog struct {
	Id       string                   `json:"id" yaml:"id"`
	Entities []CatalogEntity          `json:"entities" yaml:"entities"`
	ByName   map[string]CatalogEntity `json:"-" yaml:"-"` //ignore field when marshaling/unmarshaling
}

type CatalogEntity struct {
	Name             string                 `json:"name" yaml:"name"`
	DisplayName      string                 `json:"displayName" yaml:"displayName"`
	Description      string                 `json:"description" yaml:"description"`
	SchemaDefinition map[string]interface{} `json:"schemaDefinition" yaml:"schemaDefinition"`
	Metadata         map[string]interface{} `json:"metadata" yaml:"metadata"`
}
