package core

import "github.com/rs/zerolog/log"

// PublishResult reports delivery stats/backpressure to the hub.
type PublishResult struct {
	SendTo  int
	Dropped []Member
}

// FanOut writes one frame to every member except the excluded one.
// It never blocks and never closes adapter-owned resources.
func FanOut(members []Member, exclude SessionID, data Frame) PublishResult {
	res := PublishResult{}
	for _, m := range members {
		if exclude != "" && m.SID == exclude {
			continue
		}
		if err := m.Conn.TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, m)
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "core.fanout").Str("exclude", string(exclude)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("fanout result")
	return res
}
