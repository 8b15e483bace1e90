package pipeline

// Preferences are the user switches that select optional stages.
type Preferences struct {
	Annotate  bool `json:"annotate"`
	Summarize bool `json:"summarize"`
	Readme    bool `json:"readme"`
	Visualize bool `json:"visualize"`
}

// FullPreferences enables every stage.
func FullPreferences() Preferences {
	return Preferences{Annotate: true, Summarize: true, Readme: true, Visualize: true}
}

// PreviewPreferences enables everything except inline annotation.
func PreviewPreferences() Preferences {
	p := FullPreferences()
	p.Annotate = false
	return p
}

// Shape is the annotation path a run takes after parsing.
type Shape int

const (
	ShapeNeither Shape = iota
	ShapeAnnotate
	ShapeSummarize
	ShapeBoth
)

var shapeNames = [...]string{"neither", "annotate", "summarize", "both"}

func (s Shape) String() string {
	if s < 0 || int(s) >= len(shapeNames) {
		return "unknown"
	}
	return shapeNames[s]
}

// ShapeOf resolves the annotation path from p.
func ShapeOf(p Preferences) Shape {
	switch {
	case p.Annotate && p.Summarize:
		return ShapeBoth
	case p.Annotate:
		return ShapeAnnotate
	case p.Summarize:
		return ShapeSummarize
	default:
		return ShapeNeither
	}
}
