// Package cursor implements the opaque, versioned pagination cursor from
// §6: version byte + created_at + id, base64url-encoded. Encode/decode is
// a bijection on (created_at, id) pairs (L1).
package cursor

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/ugc-subgraph/internal/ugcerr"
)

// version1 is the only cursor encoding version this build emits or
// accepts. A tampered or unknown version byte is rejected (§8 boundary
// behavior: "Cursor with tampered version byte rejected with InvalidCursor").
const version1 byte = 1

// Cursor is the decoded boundary position of a page of results.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// Encode serializes c into the opaque token handed back to clients as
// endCursor / edges[].cursor.
func Encode(c Cursor) string {
	buf := make([]byte, 1+8+16)
	buf[0] = version1
	binary.BigEndian.PutUint64(buf[1:9], uint64(c.CreatedAt.UTC().UnixNano()))
	idBytes, _ := c.ID.MarshalBinary() // uuid.UUID.MarshalBinary never errors
	copy(buf[9:25], idBytes)
	return base64.RawURLEncoding.EncodeToString(buf)
}

// Decode parses a token produced by Encode. Any structural mismatch,
// including a version byte that does not equal version1, is reported as
// ugcerr.KindInvalid ("InvalidCursor" per §7/§8).
func Decode(token string) (Cursor, error) {
	const op = "cursor.Decode"
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, ugcerr.NewField(op, "cursor", fmt.Errorf("malformed cursor encoding: %w", err))
	}
	if len(raw) != 1+8+16 {
		return Cursor{}, ugcerr.NewField(op, "cursor", fmt.Errorf("malformed cursor length %d", len(raw)))
	}
	if raw[0] != version1 {
		return Cursor{}, ugcerr.NewField(op, "cursor", fmt.Errorf("unsupported cursor version %d", raw[0]))
	}
	nanos := int64(binary.BigEndian.Uint64(raw[1:9]))
	var id uuid.UUID
	if err := id.UnmarshalBinary(raw[9:25]); err != nil {
		return Cursor{}, ugcerr.NewField(op, "cursor", fmt.Errorf("malformed cursor id: %w", err))
	}
	return Cursor{CreatedAt: time.Unix(0, nanos).UTC(), ID: id}, nil
}
