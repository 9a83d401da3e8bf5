package weather

// Field value kinds used by the schema contracts. The names follow BSON type
// aliases so the document store can translate a contract into a $jsonSchema
// validator without its own mapping table.
const (
	TypeInt    = "int"
	TypeDouble = "double"
	TypeString = "string"
	TypeBool   = "bool"
	TypeDate   = "date"
)

// FieldRule is the allowed shape of one document field. Nullable permits an
// explicit null value, which is distinct from the field being absent.
type FieldRule struct {
	Type     string
	Nullable bool
}

// CollectionSchema is the declarative structural contract for one collection:
// the required field set plus per-field typing. The store applies it at write
// time under strict validation.
type CollectionSchema struct {
	Collection string
	Required   []string
	Fields     map[string]FieldRule
}

// CollectionSchemas returns the three declared contracts. Identity fields are
// required everywhere; meteorological readings are optional and nullable.
func CollectionSchemas() []CollectionSchema {
	nullableDouble := FieldRule{Type: TypeDouble, Nullable: true}
	nullableString := FieldRule{Type: TypeString, Nullable: true}
	nullableBool := FieldRule{Type: TypeBool, Nullable: true}

	return []CollectionSchema{
		{
			Collection: CollectionLocations,
			Required:   []string{"location_id", "name"},
			Fields: map[string]FieldRule{
				"location_id": {Type: TypeInt},
				"name":        {Type: TypeString},
				"state":       nullableString,
			},
		},
		{
			Collection: CollectionObservations,
			Required:   []string{"observation_id", "location_id", "date"},
			Fields: map[string]FieldRule{
				"observation_id": {Type: TypeInt},
				"location_id":    {Type: TypeInt},
				"date":           {Type: TypeDate},
				"min_temp":       nullableDouble,
				"max_temp":       nullableDouble,
				"rainfall":       nullableDouble,
				"humidity_9am":   nullableDouble,
				"humidity_3pm":   nullableDouble,
				"pressure_9am":   nullableDouble,
				"pressure_3pm":   nullableDouble,
				"wind_speed_9am": nullableDouble,
				"wind_speed_3pm": nullableDouble,
				"wind_dir_9am":   nullableString,
				"wind_dir_3pm":   nullableString,
				"cloud_9am":      nullableDouble,
				"cloud_3pm":      nullableDouble,
				"temp_9am":       nullableDouble,
				"temp_3pm":       nullableDouble,
				"rain_today":     nullableBool,
				"rain_tomorrow":  nullableBool,
			},
		},
		{
			Collection: CollectionPredictions,
			Required:   []string{"prediction_id", "location_id", "observation_id", "will_it_rain", "predicted_at"},
			Fields: map[string]FieldRule{
				"prediction_id":  {Type: TypeInt},
				"location_id":    {Type: TypeInt},
				"observation_id": {Type: TypeInt},
				"will_it_rain":   {Type: TypeBool},
				"predicted_at":   {Type: TypeDate},
			},
		},
	}
}
