package tui

import "fmt"

// View is one of the three screens. The set is closed.
type View int

const (
	ViewDashboard View = iota
	ViewUpload
	ViewChat

	viewCount = 3
)

func (v View) String() string {
	switch v {
	case ViewDashboard:
		return "Dashboard"
	case ViewUpload:
		return "Upload"
	case ViewChat:
		return "Chat"
	default:
		panic(fmt.Sprintf("tui: unknown view %d", int(v)))
	}
}

// Next cycles forward through the views
func (v View) Next() View {
	return (v + 1) % viewCount
}

// Prev cycles backward through the views
func (v View) Prev() View {
	return (v + viewCount - 1) % viewCount
}

var views = []View{ViewDashboard, ViewUpload, ViewChat}
