package blockchain

import "strings"

type NonceType = uint64

// DifficultyPrefix returns the required hash prefix for a difficulty
func DifficultyPrefix(difficulty int) string {
	if difficulty < 0 {
		difficulty = 0
	}
	return strings.Repeat("0", difficulty)
}

func BlockHashMeetsDifficulty(hash string, difficulty int) bool {
	if hash == "" || difficulty > len(hash) {
		return false
	}
	return strings.HasPrefix(hash, DifficultyPrefix(difficulty))
}

// ProofOfWork scans nonces from 0 upwards and returns the first one whose
// hash meets the difficulty. The search is unbounded.
func ProofOfWork(prevHash string, data BlockData, difficulty int) NonceType {
	var nonce NonceType
	for hash := HashBlock(prevHash, data, nonce); !BlockHashMeetsDifficulty(hash, difficulty); hash = HashBlock(prevHash, data, nonce) {
		nonce += 1
	}
	return nonce
}
