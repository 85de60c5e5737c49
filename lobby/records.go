package lobby

import (
	"blackjack-server/room"
	"blackjack-server/storage"
)

// RoundSink returns a room settlement hook that queues each round on rec.
// It never blocks the room's action loop.
func RoundSink(rec *storage.Recorder) func(room.RoundRecord) {
	return func(r room.RoundRecord) {
		rec.Record(roomRound(r))
	}
}

func roomRound(r room.RoundRecord) storage.RoomRound {
	out := storage.RoomRound{
		RoomID:      r.RoomID,
		RoomName:    r.RoomName,
		Round:       r.Round,
		PlayedAt:    r.SettledAt,
		DealerHand:  r.DealerHand,
		DealerScore: r.DealerScore,
		Message:     r.Message,
		Players:     make([]storage.RoundPlayer, 0, len(r.Results)),
	}
	for _, res := range r.Results {
		out.Players = append(out.Players, storage.RoundPlayer{
			PlayerID: res.PlayerID,
			Name:     res.Name,
			IsAI:     res.IsAI,
			Bet:      res.Bet,
			Hand:     res.Hand,
			Score:    res.Score,
			Outcome:  res.Outcome.String(),
			Net:      res.Net,
			Balance:  res.Balance,
		})
	}
	return out
}
