package machine

// Durations holds the fixed time costs of the cost model, in seconds.
type Durations struct {
	ToolChange  int
	PassThrough int
}

// Window is a time interval on a named machine.
type Window struct {
	Machine string `json:"machine"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

// Quote is the outcome of placing one operation on one machine.
type Quote struct {
	Machine     string
	Start       int
	End         int
	ToolChanged bool
	// PassThrough is the window consumed on the primary partner when the
	// quoted machine is secondary.
	PassThrough *Window
}

func (q Quote) equal(o Quote) bool {
	if q.Machine != o.Machine || q.Start != o.Start || q.End != o.End || q.ToolChanged != o.ToolChanged {
		return false
	}
	if (q.PassThrough == nil) != (o.PassThrough == nil) {
		return false
	}
	return q.PassThrough == nil || *q.PassThrough == *o.PassThrough
}

// view is the subset of machine state the cost model reads.
type view struct {
	name        string
	currentTool string
	busyUntil   int
}

// quote applies the cost model. partner is nil for primary machines.
func quote(m view, partner *view, tool string, ready, duration int, d Durations) Quote {
	q := Quote{Machine: m.name}

	change := 0
	if m.currentTool != tool {
		change = d.ToolChange
		q.ToolChanged = true
	}

	begin := max(ready, m.busyUntil)
	if partner != nil {
		ptStart := max(ready, partner.busyUntil)
		ptEnd := ptStart + d.PassThrough
		q.PassThrough = &Window{Machine: partner.name, Start: ptStart, End: ptEnd}
		begin = max(ptEnd, m.busyUntil)
	}

	q.Start = begin + change
	q.End = q.Start + duration
	return q
}
