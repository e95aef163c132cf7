package blockchain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
)

// EncodeBlockData serializes block data deterministically.
//
// The layout is compact JSON with fields in struct order ({"transactions":[{"amount",
// "sender","recipient","id"}...],"index":n}), no HTML escaping and ES6 number
// formatting for amounts. Validators recompute hashes from this exact byte string.
//
// encoding/json escapes U+2028 and U+2029 and replaces invalid UTF-8 with U+FFFD,
// which JSON.stringify does not, so strings carrying those hash differently on
// JavaScript peers.
func EncodeBlockData(data BlockData) ([]byte, error) {
	if data.Transactions == nil {
		data.Transactions = []Transaction{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return nil, err
	}

	// Encoder always terminates with a newline
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// HashBlock computes sha256(prevHash + nonce + data) as lowercase hex
func HashBlock(prevHash string, data BlockData, nonce uint64) string {
	encoded, err := EncodeBlockData(data)
	if err != nil {
		// Only plain strings and float64 are encoded; NaN/Inf amounts are the
		// sole failure mode and hash to an unreachable digest.
		return ""
	}

	h := sha256.New()
	h.Write([]byte(prevHash))
	h.Write([]byte(strconv.FormatUint(nonce, 10)))
	h.Write(encoded)
	return hex.EncodeToString(h.Sum(nil))
}
