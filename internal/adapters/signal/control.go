package signal

import (
	"github.com/ekoclu/aniparty/internal/core"
	"github.com/ekoclu/aniparty/internal/proto"
)

func (ctl *SignalWSController) handlePing(conn core.SignalConnection) {
	ctl.sendJSON(conn, proto.Pong{Type: proto.TypePong})
}
