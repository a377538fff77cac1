package board

// MoveChange is a move inferred from two board snapshots.
type MoveChange struct {
	From        Position
	To          Position
	PieceBefore Piece
	PieceAfter  Piece
	Captured    *Piece
}

// Promotion reports whether the moving piece changed kind.
func (m MoveChange) Promotion() bool {
	return m.PieceBefore.Kind != m.PieceAfter.Kind
}

type cellDiff struct {
	at     Position
	before Piece
	after  Piece
}

// vacated: held a piece, now empty or held by the other side.
func (d cellDiff) vacated() bool {
	return !d.before.Empty() && (d.after.Empty() || d.after.Side != d.before.Side)
}

// entered: now holds a piece, previously empty or held by the other side.
func (d cellDiff) entered() bool {
	return !d.after.Empty() && (d.before.Empty() || d.before.Side != d.after.Side)
}

func diffCells(prev, next *Board) []cellDiff {
	var out []cellDiff
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if prev[r][c] != next[r][c] {
				out = append(out, cellDiff{at: Position{Row: r, Col: c}, before: prev[r][c], after: next[r][c]})
			}
		}
	}
	return out
}

// Diff infers the move that turns prev into next. It returns nil when the
// boards are equal or no origin/destination pair can be matched.
//
// Two differing cells are resolved directly. With three or more (castling,
// en passant) the first vacated/entered pair of the same side wins, which can
// pick the wrong pair when several same-side pieces changed; an explicit move
// descriptor from the server should be preferred when one is available.
func Diff(prev, next Board) *MoveChange {
	diffs := diffCells(&prev, &next)
	if len(diffs) == 0 {
		return nil
	}

	if len(diffs) == 2 {
		from := pick(diffs, func(d cellDiff) bool { return !d.before.Empty() && d.after.Empty() },
			func(d cellDiff) bool { return d.vacated() && !d.after.Empty() })
		to := pick(diffs, func(d cellDiff) bool { return !d.after.Empty() && d.before.Empty() },
			func(d cellDiff) bool { return d.entered() && !d.before.Empty() })
		if from != nil && to != nil && from.at != to.at && from.before.Side == to.after.Side {
			return change(*from, *to)
		}
	}

	for _, f := range diffs {
		if !f.vacated() {
			continue
		}
		for _, t := range diffs {
			if !t.entered() || f.at == t.at {
				continue
			}
			if f.before.Side == t.after.Side {
				return change(f, t)
			}
		}
	}
	return nil
}

// pick returns the first diff matching primary, else the first matching fallback.
func pick(diffs []cellDiff, primary, fallback func(cellDiff) bool) *cellDiff {
	for i := range diffs {
		if primary(diffs[i]) {
			return &diffs[i]
		}
	}
	for i := range diffs {
		if fallback(diffs[i]) {
			return &diffs[i]
		}
	}
	return nil
}

func change(from, to cellDiff) *MoveChange {
	mc := &MoveChange{
		From:        from.at,
		To:          to.at,
		PieceBefore: from.before,
		PieceAfter:  to.after,
	}
	if !to.before.Empty() && to.before.Side != from.before.Side {
		captured := to.before
		mc.Captured = &captured
	}
	return mc
}
