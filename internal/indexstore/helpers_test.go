package indexstore

import (
	"database/sql"
	"encoding/json"

	"github.com/latticeforge/gridlex/pkg/index"
)

func jsonMarshalEncoded(idx *index.Index) ([]byte, error) {
	return json.Marshal(idx.Encode())
}

func sqlmockNoRows() error {
	return sql.ErrNoRows
}
