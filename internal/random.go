package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

const magicLinkRawSize = 32

// IDs mints session ids and token ids from one snowflake node. Ids are
// decimal strings so they read the same in Redis keys and token claims.
type IDs struct {
	node *snowflake.Node
}

func NewIDs(nodeID int64) (*IDs, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, err
	}
	return &IDs{node: node}, nil
}

func (g *IDs) SessionID() string {
	return g.node.Generate().String()
}

func (g *IDs) TokenID() string {
	return g.node.Generate().String()
}

// ParseID checks that s is a snowflake id minted by any node.
func ParseID(s string) (int64, error) {
	id, err := snowflake.ParseString(s)
	if err != nil {
		return 0, err
	}
	if id.Int64() <= 0 {
		return 0, errors.New("invalid id")
	}
	return id.Int64(), nil
}

// NewMagicLinkToken returns a url-safe single-use token: a random uuid
// followed by extra entropy.
func NewMagicLinkToken() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	var raw [magicLinkRawSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return u.String() + "." + base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// NewKeyID returns a fresh key id for signing key rotation.
func NewKeyID() string {
	return uuid.NewString()
}

// FormatID renders an integer id the same way snowflake ids render.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
