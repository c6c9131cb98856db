package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/encore/internal/reconcile"
)

// editorModel is the rating/review form shown in [EditorView].
//
// The inputs mirror the reconciler's drafts: every keystroke is pushed back
// so the dirty gate always sees the latest text.
type editorModel struct {
	ratingInput textinput.Model
	reviewArea  textarea.Model
	focusReview bool
	saving      bool
	saved       bool
}

func newEditorModel() editorModel {
	rating := textinput.New()
	rating.Placeholder = "0-5"
	rating.CharLimit = 5
	rating.Width = 8

	review := textarea.New()
	review.Placeholder = "Write a review..."
	review.CharLimit = 2000
	review.SetHeight(5)

	return editorModel{
		ratingInput: rating,
		reviewArea:  review,
	}
}

func (e *editorModel) setSize(width int) {
	if width > 8 {
		e.reviewArea.SetWidth(width - 8)
	}
}

// reset clears the form for a new item (or closes it with nil).
func (e *editorModel) reset(item *reconcile.SelectedItem) {
	e.ratingInput.SetValue("")
	e.reviewArea.SetValue("")
	e.focusReview = false
	e.saving = false
	e.saved = false
	if item != nil {
		e.ratingInput.Focus()
		e.reviewArea.Blur()
	} else {
		e.ratingInput.Blur()
		e.reviewArea.Blur()
	}
}

// seed copies the reconciler's drafts into the inputs. Called when the
// baseline lands and after a successful save.
func (e *editorModel) seed(rec *reconcile.Reconciler) {
	drafts := rec.Drafts()
	e.ratingInput.SetValue(drafts.RatingInput)
	e.reviewArea.SetValue(drafts.ReviewInput)
}

// push writes the current input text into the reconciler's drafts.
func (e *editorModel) push(rec *reconcile.Reconciler) {
	rec.SetRatingInput(e.ratingInput.Value())
	rec.SetReviewInput(e.reviewArea.Value())
}

func (e *editorModel) cycleFocus() {
	e.focusReview = !e.focusReview
	if e.focusReview {
		e.ratingInput.Blur()
		e.reviewArea.Focus()
	} else {
		e.reviewArea.Blur()
		e.ratingInput.Focus()
	}
}

func (e *editorModel) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if e.focusReview {
		e.reviewArea, cmd = e.reviewArea.Update(msg)
	} else {
		e.ratingInput, cmd = e.ratingInput.Update(msg)
	}
	e.saved = false
	return cmd
}

func (e *editorModel) render(item *reconcile.SelectedItem, rec *reconcile.Reconciler, helpModel help.Model, keys keyMap) string {
	var b strings.Builder

	b.WriteString(styles.title.Render(item.Title) + "\n")
	if item.Subtitle != "" {
		b.WriteString(styles.dim.Render(item.Subtitle) + "\n")
	}
	b.WriteString(styles.dim.Render(string(item.Type)) + "\n\n")

	if msg := rec.FetchError(); msg != "" {
		b.WriteString(styles.err.Render(msg) + "\n\n")
	} else if data := rec.Data(); data != nil && data.Rating != nil {
		b.WriteString(styles.star.Render(renderStars(*data.Rating)) + styles.dim.Render(fmt.Sprintf("  %.2f/5", *data.Rating)) + "\n\n")
	}

	b.WriteString("Rating\n" + e.ratingInput.View() + "\n\n")
	b.WriteString("Review\n" + e.reviewArea.View() + "\n\n")

	switch {
	case e.saving:
		b.WriteString(styles.dim.Render("Saving...") + "\n")
	case rec.SaveError() != "":
		b.WriteString(styles.err.Render(rec.SaveError()) + "\n")
	case e.saved:
		b.WriteString(styles.ok.Render("✓ Saved") + "\n")
	case !rec.Clean():
		b.WriteString(styles.warn.Render("Unsaved changes") + "\n")
	}

	helpKeys := []key.Binding{keys.save, keys.next, keys.back}
	b.WriteString("\n" + helpModel.ShortHelpView(helpKeys))
	return b.String()
}

// renderStars draws a five-star bar at half-star precision.
func renderStars(rating float64) string {
	if rating < 0 {
		rating = 0
	}
	if rating > 5 {
		rating = 5
	}

	halves := int(rating*2 + 0.5)
	var b strings.Builder
	for i := 0; i < 5; i++ {
		switch {
		case halves >= 2:
			b.WriteString("★")
			halves -= 2
		case halves == 1:
			b.WriteString("⯨")
			halves--
		default:
			b.WriteString("☆")
		}
	}
	return b.String()
}
