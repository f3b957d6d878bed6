package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/MrEthical07/authcache/internal/seal"
	"github.com/klauspost/compress/zlib"
)

// maxBlobBytes caps the inflated size so a forged blob cannot balloon.
const maxBlobBytes = 64 << 10

var ErrCorruptBlob = errors.New("profile blob corrupt")

// Profile is the user document carried, compressed and sealed, in the
// session hash.
type Profile struct {
	Email        string    `json:"email" bson:"email"`
	Username     string    `json:"username,omitempty" bson:"username,omitempty"`
	Name         string    `json:"name,omitempty" bson:"name,omitempty"`
	Picture      string    `json:"picture,omitempty" bson:"picture,omitempty"`
	Phone        string    `json:"phone,omitempty" bson:"phone,omitempty"`
	Provider     string    `json:"provider" bson:"provider"`
	Role         string    `json:"role" bson:"role"`
	LoginMethod  string    `json:"login_method" bson:"login_method"`
	PasswordHash string    `json:"password_hash,omitempty" bson:"password_hash,omitempty"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

// Codec encodes profiles into session blobs and back.
type Codec struct {
	box   *seal.Box
	level int
}

// NewCodec derives the sealing key from secret. level is a zlib level;
// zero selects zlib.BestSpeed.
func NewCodec(secret []byte, level int) (*Codec, error) {
	box, err := seal.New(secret)
	if err != nil {
		return nil, err
	}
	if level == 0 {
		level = zlib.BestSpeed
	}
	if _, err := zlib.NewWriterLevel(io.Discard, level); err != nil {
		return nil, err
	}
	return &Codec{box: box, level: level}, nil
}

func (c *Codec) Encode(p Profile) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, c.level)
	if err != nil {
		return "", err
	}
	if _, err := zw.Write(raw); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	return c.box.SealBytes(buf.Bytes())
}

func (c *Codec) Decode(blob string) (Profile, error) {
	var p Profile
	compressed, err := c.box.OpenBytes(blob)
	if err != nil {
		return p, fmt.Errorf("%w: %v", ErrCorruptBlob, err)
	}
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return p, fmt.Errorf("%w: %v", ErrCorruptBlob, err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(io.LimitReader(zr, maxBlobBytes+1))
	if err != nil {
		return p, fmt.Errorf("%w: %v", ErrCorruptBlob, err)
	}
	if len(raw) > maxBlobBytes {
		return p, fmt.Errorf("%w: inflated size exceeds %d bytes", ErrCorruptBlob, maxBlobBytes)
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrCorruptBlob, err)
	}
	return p, nil
}
