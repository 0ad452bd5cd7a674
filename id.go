package arcana

import "github.com/xraph/arcana/id"

// ID is the primary identifier type for all Arcana entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
