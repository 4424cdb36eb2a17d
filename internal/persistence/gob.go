package persistence

import (
	"encoding/gob"
	"fmt"
	"os"
)

// SaveGob encodes the given object using gob and atomically saves it to filePath.
// It creates necessary directories if they don't exist.
func SaveGob(filePath string, object interface{}) error {
	file, err := CreateAtomic(filePath)
	if err != nil {
		return err
	}

	if err := gob.NewEncoder(file).Encode(object); err != nil {
		_ = file.Abort()
		return fmt.Errorf("failed to gob encode to file %s: %w", filePath, err)
	}
	return file.Commit()
}

// LoadGob decodes a gob-encoded file from filePath into the provided object pointer.
// If the file does not exist, it returns os.ErrNotExist.
func LoadGob(filePath string, objectPointer interface{}) error {
	file, err := os.Open(filePath) // #nosec G304 -- filePath is controlled by application, not user input
	if err != nil {
		if os.IsNotExist(err) {
			return os.ErrNotExist
		}
		return fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer func() { _ = file.Close() }()

	if err := gob.NewDecoder(file).Decode(objectPointer); err != nil {
		return fmt.Errorf("failed to gob decode from file %s: %w", filePath, err)
	}
	return nil
}
