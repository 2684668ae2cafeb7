package ledger

import "sort"

// Outstanding folds entries (oldest first) into the uploads that no later
// delete has removed. The result is ordered by upload time.
func Outstanding(entries []Entry) []Entry {
	live := make(map[string]Entry)
	for _, e := range entries {
		key := e.Bucket + "\x00" + e.Path
		switch e.Op {
		case OpUpload:
			live[key] = e
		case OpDelete:
			delete(live, key)
		}
	}
	out := make([]Entry, 0, len(live))
	for _, e := range live {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].At.Equal(out[j].At) {
			return out[i].ID < out[j].ID
		}
		return out[i].At.Before(out[j].At)
	})
	return out
}
