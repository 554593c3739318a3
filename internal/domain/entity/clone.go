package entity

import "time"

// Clone devuelve una copia profunda del agregado. La sesión de edición
// guarda instantáneas mientras hay un guardado en vuelo y los lectores
// reciben copias para que ninguna mutación local se filtre.
func (s *Sheet) Clone() *Sheet {
	if s == nil {
		return nil
	}
	out := *s

	out.StagingItems = append([]StagingItem(nil), s.StagingItems...)
	out.AdditionalItems = append([]AdditionalItem(nil), s.AdditionalItems...)
	out.Comments = append([]Comment(nil), s.Comments...)
	out.History = append([]HistoryEvent(nil), s.History...)

	out.LoadingItems = make([]LoadingItem, len(s.LoadingItems))
	for i, li := range s.LoadingItems {
		cp := li
		cp.Cells = append([]Cell(nil), li.Cells...)
		if li.LooseInput != nil {
			v := *li.LooseInput
			cp.LooseInput = &v
		}
		out.LoadingItems[i] = cp
	}

	out.LockedAt = copyTime(s.LockedAt)
	out.VerifiedAt = copyTime(s.VerifiedAt)
	out.LoadingApprovedAt = copyTime(s.LoadingApprovedAt)
	out.CompletedAt = copyTime(s.CompletedAt)
	out.LoadingStartTime = copyTime(s.LoadingStartTime)
	out.LoadingEndTime = copyTime(s.LoadingEndTime)

	return &out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
