package relay

import (
	"sort"
	"strconv"
	"strings"
)

// AlreadyAnswered reports whether replies contain an answer from self posted
// at or after triggerTS. With an unknown identity any bot-authored reply
// counts. Timestamps that do not parse count as answered.
func AlreadyAnswered(replies []Message, triggerTS string, self Identity) bool {
	for _, r := range replies {
		if r.TS == triggerTS {
			continue
		}
		if !self.authored(r) {
			continue
		}
		cmp, ok := compareTS(r.TS, triggerTS)
		if !ok || cmp >= 0 {
			return true
		}
	}
	return false
}

func (i Identity) authored(m Message) bool {
	if !i.Known() {
		return m.BotID != ""
	}
	if i.UserID != "" && m.UserID == i.UserID {
		return true
	}
	return i.BotID != "" && m.BotID == i.BotID
}

type parsedTS struct {
	sec  int64
	frac int64
}

// parseTS reads a "<seconds>.<fraction>" timestamp without going through
// float64, which cannot hold microsecond precision at current epochs.
func parseTS(raw string) (parsedTS, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return parsedTS{}, false
	}
	secPart, fracPart, _ := strings.Cut(raw, ".")
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return parsedTS{}, false
	}
	if len(fracPart) > 9 {
		fracPart = fracPart[:9]
	}
	var frac int64
	if fracPart != "" {
		frac, err = strconv.ParseInt(fracPart+strings.Repeat("0", 9-len(fracPart)), 10, 64)
		if err != nil {
			return parsedTS{}, false
		}
	}
	return parsedTS{sec: sec, frac: frac}, true
}

func compareTS(a, b string) (int, bool) {
	pa, ok := parseTS(a)
	if !ok {
		return 0, false
	}
	pb, ok := parseTS(b)
	if !ok {
		return 0, false
	}
	switch {
	case pa.sec != pb.sec:
		if pa.sec < pb.sec {
			return -1, true
		}
		return 1, true
	case pa.frac < pb.frac:
		return -1, true
	case pa.frac > pb.frac:
		return 1, true
	default:
		return 0, true
	}
}

// sortOldestFirst orders messages by timestamp; unparseable ones keep their
// relative position at the end.
func sortOldestFirst(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		cmp, ok := compareTS(msgs[i].TS, msgs[j].TS)
		if !ok {
			_, iok := parseTS(msgs[i].TS)
			return iok
		}
		return cmp < 0
	})
}
