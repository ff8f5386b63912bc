package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/healthsync-ai/cli/internal/app"
	"github.com/healthsync-ai/cli/internal/documents"
	"github.com/healthsync-ai/cli/internal/health"
	"github.com/healthsync-ai/cli/internal/ingest"
)

type uploadField int

const (
	fieldNone uploadField = iota
	fieldText
	fieldPath
)

const recentDocuments = 5

// uploadView submits pasted text or a file for analysis
type uploadView struct {
	root *Model

	text  textarea.Model
	path  textinput.Model
	field uploadField

	extract   bool
	force     bool
	uploading bool
}

func newUploadView(root *Model) *uploadView {
	ta := textarea.New()
	ta.Placeholder = "Paste prescription, lab result or visit notes..."
	ta.ShowLineNumbers = false
	ta.SetHeight(8)
	ta.SetWidth(76)
	ta.CharLimit = 0

	ti := textinput.New()
	ti.Placeholder = "Path to a file (" + ingest.AcceptHint + ")"
	ti.Prompt = "File: "
	ti.Width = 70

	return &uploadView{root: root, text: ta, path: ti}
}

func (uv *uploadView) resize(width, height int) {
	uv.text.SetWidth(max(width-4, 20))
	uv.text.SetHeight(max(height/3, 4))
	uv.path.Width = max(width-10, 20)
}

func (uv *uploadView) typing() bool {
	return uv.field != fieldNone
}

func (uv *uploadView) focus() tea.Cmd {
	if uv.field == fieldNone {
		uv.field = fieldText
	}
	return uv.applyFocus()
}

func (uv *uploadView) applyFocus() tea.Cmd {
	uv.text.Blur()
	uv.path.Blur()
	switch uv.field {
	case fieldText:
		return uv.text.Focus()
	case fieldPath:
		return uv.path.Focus()
	}
	return nil
}

func (uv *uploadView) clear() {
	uv.text.Reset()
	uv.path.Reset()
	uv.uploading = false
}

// finish is called when an analysis round trip ends. Inputs are cleared only
// after a successful submission.
func (uv *uploadView) finish(out app.Outcome) {
	uv.uploading = false
	if out.Status.IsError() {
		return
	}
	uv.text.Reset()
	uv.path.Reset()
	uv.force = false
}

func (uv *uploadView) update(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			uv.field = fieldNone
			return uv.applyFocus()
		case "ctrl+o":
			if uv.field == fieldText {
				uv.field = fieldPath
			} else {
				uv.field = fieldText
			}
			return uv.applyFocus()
		case "ctrl+e":
			uv.extract = !uv.extract
			return nil
		case "ctrl+f":
			uv.force = !uv.force
			return nil
		case "ctrl+s":
			return uv.submitText()
		case "enter":
			switch uv.field {
			case fieldPath:
				return uv.submitFile()
			case fieldNone:
				uv.field = fieldText
				return uv.applyFocus()
			}
		}
		if uv.field == fieldNone {
			switch key.String() {
			case "t":
				uv.field = fieldText
				return uv.applyFocus()
			case "f":
				uv.field = fieldPath
				return uv.applyFocus()
			}
			return nil
		}
	}

	var cmd tea.Cmd
	switch uv.field {
	case fieldText:
		uv.text, cmd = uv.text.Update(msg)
	case fieldPath:
		uv.path, cmd = uv.path.Update(msg)
	}
	return cmd
}

func (uv *uploadView) submitText() tea.Cmd {
	if uv.uploading {
		return nil
	}
	m := uv.root
	text := uv.text.Value()
	if strings.TrimSpace(text) == "" {
		m.status = app.Failure(ingest.MsgEmptyText)
		return nil
	}
	uv.uploading = true
	m.status = app.Status{}
	return analyzeTextCmd(m.ctx, m.app, text)
}

func (uv *uploadView) submitFile() tea.Cmd {
	if uv.uploading {
		return nil
	}
	m := uv.root
	path := strings.TrimSpace(uv.path.Value())
	if path == "" {
		m.status = app.Failure("Please enter a file path.")
		return nil
	}
	uv.uploading = true
	m.status = app.Status{}
	return analyzeFileCmd(m.ctx, m.app, path, documents.Options{ExtractLocally: uv.extract, Force: uv.force})
}

func (uv *uploadView) view() string {
	var lines []string

	lines = append(lines, headingStyle.Render("Paste document text"))
	lines = append(lines, uv.text.View())
	lines = append(lines, "")
	lines = append(lines, headingStyle.Render("Or import a file"))
	lines = append(lines, uv.path.View())
	lines = append(lines, helpStyle.Render(fmt.Sprintf("extract locally: %s   force resubmit: %s",
		onOff(uv.extract), onOff(uv.force))))

	if uv.uploading {
		lines = append(lines, "", uv.root.spin.View()+" Analyzing document...")
	}

	lines = append(lines, "", uv.renderRecent())
	return strings.Join(lines, "\n")
}

func (uv *uploadView) renderRecent() string {
	docs := uv.root.app.Store.Snapshot().Documents
	lines := []string{headingStyle.Render(fmt.Sprintf("Recent documents (%d)", len(docs)))}
	if len(docs) == 0 {
		return strings.Join(append(lines, helpStyle.Render("Nothing uploaded yet.")), "\n")
	}

	start := max(len(docs)-recentDocuments, 0)
	for i := len(docs) - 1; i >= start; i-- {
		doc := docs[i]
		uploaded := clean(doc.UploadedAt)
		if t, ok := health.ParseTime(uploaded); ok {
			uploaded = t.Format("Jan 2 15:04")
		}
		lines = append(lines, fmt.Sprintf("• #%s %s  %d medications  %s",
			clean(doc.ID), preview(doc.Text, 40), doc.Analysis.MedicationCount(), helpStyle.Render(uploaded)))
	}
	return strings.Join(lines, "\n")
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// preview returns the first line of text, cut to n runes
func preview(text string, n int) string {
	line, _, _ := strings.Cut(strings.TrimSpace(clean(text)), "\n")
	r := []rune(line)
	if len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return line
}
