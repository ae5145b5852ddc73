package storage

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// ImportRecord describes one import root created in a store
type ImportRecord struct {
	Root        string    `json:"root"`
	TargetGroup string    `json:"targetGroup"`
	At          time.Time `json:"at"`
	SourceID    string    `json:"sourceId"`
	Groups      int       `json:"groups"`
	Entries     int       `json:"entries"`
}

func readImports(tx *bolt.Tx) ([]ImportRecord, error) {
	imports := tx.Bucket(ImportsBucket)
	if imports == nil {
		return nil, nil
	}

	var records []ImportRecord
	err := imports.ForEach(func(k, v []byte) error {
		var ir ImportRecord
		if err := json.Unmarshal(v, &ir); err != nil {
			return fmt.Errorf("%w: import record: %v", ErrCorrupt, err)
		}
		records = append(records, ir)
		return nil
	})
	return records, err
}
