package party

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/ekoclu/aniparty/internal/domain"
)

// roomCodeBytes gives 8 hex chars, short enough to share aloud.
const roomCodeBytes = 4

func generateRoomCode() (domain.RoomCode, error) {
	buf := make([]byte, roomCodeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return domain.RoomCode(hex.EncodeToString(buf)), nil
}
