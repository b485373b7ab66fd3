package checkpoint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

const formatVersion = "1"

type envelope struct {
	Version  string          `json:"version"`
	ID       string          `json:"id"`
	SavedAt  time.Time       `json:"saved_at"`
	Checksum string          `json:"checksum"`
	Data     json.RawMessage `json:"data"`
}

// checksum is computed over the compact encoding of the data.
func checksum(data []byte) string {
	hash := sha256.Sum256(data)

	return hex.EncodeToString(hash[:])
}

func encode(id string, data Data) ([]byte, error) {
	if data == nil {
		data = Data{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, errors.Wrap(err, "unable to marshal checkpoint data")
	}
	out, err := json.MarshalIndent(envelope{
		Version:  formatVersion,
		ID:       id,
		SavedAt:  time.Now().UTC(),
		Checksum: checksum(raw),
		Data:     raw,
	}, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "unable to marshal checkpoint")
	}

	return out, nil
}

func decode(id string, content []byte) (Data, error) {
	env := envelope{}
	err := json.Unmarshal(content, &env)
	if err != nil {
		return nil, errors.Wrapf(ErrCorrupted, "%s: %v", id, err)
	}
	if env.Version != formatVersion {
		return nil, errors.Wrapf(ErrCorrupted, "%s: unsupported version %q", id, env.Version)
	}
	if env.ID != id {
		return nil, errors.Wrapf(ErrCorrupted, "%s: saved under %q", id, env.ID)
	}
	raw := &bytes.Buffer{}
	err = json.Compact(raw, env.Data)
	if err != nil {
		return nil, errors.Wrapf(ErrCorrupted, "%s: %v", id, err)
	}
	if checksum(raw.Bytes()) != env.Checksum {
		return nil, errors.Wrapf(ErrCorrupted, "%s: checksum mismatch", id)
	}

	data := Data{}
	err = json.Unmarshal(raw.Bytes(), &data)
	if err != nil {
		return nil, errors.Wrapf(ErrCorrupted, "%s: %v", id, err)
	}

	return data, nil
}
