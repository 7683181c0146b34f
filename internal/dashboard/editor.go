package dashboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/smileynet/storeprobe/internal/catalog"
)

const (
	msgAdded         = "Product added"
	msgUpdated       = "Product updated"
	msgAddFailed     = "Failed to add product"
	msgUpdateFailed  = "Failed to update product"
	msgFieldsMissing = "Name and price are required"
	msgBadPrice      = "Price must be a non-negative number"
	msgSaveRunning   = "Save already in progress"
)

const (
	fieldName = iota
	fieldPrice
)

// editorState is the EditorState: the add/update form. An empty editingID
// means create mode; otherwise the form edits that product.
type editorState struct {
	name      textinput.Model
	price     textinput.Model
	field     int
	focused   bool
	editingID string
	saving    bool
	message   string
}

// newEditorState returns an editorState in create mode.
func newEditorState() editorState {
	name := textinput.New()
	name.Prompt = "Name:  "
	name.Placeholder = "Widget"
	name.CharLimit = 120

	price := textinput.New()
	price.Prompt = "Price: "
	price.Placeholder = "9.99"
	price.CharLimit = 20

	return editorState{name: name, price: price}
}

// Editing reports whether the form is in edit mode.
func (es editorState) Editing() bool {
	return es.editingID != ""
}

// ModeLabel returns "create" or "edit(<id>)".
func (es editorState) ModeLabel() string {
	if es.editingID == "" {
		return "create"
	}
	return fmt.Sprintf("edit(%s)", es.editingID)
}

// selectProduct switches to edit mode with a snapshot of p.
func (es editorState) selectProduct(p catalog.Product) editorState {
	es.editingID = p.ID
	es.name.SetValue(p.Name)
	es.price.SetValue(catalog.FormatPrice(p.Price))
	es.message = ""
	return es
}

// reset clears the form and returns it to create mode.
func (es editorState) reset() editorState {
	es.editingID = ""
	es.name.SetValue("")
	es.price.SetValue("")
	es.field = fieldName
	return es.setFocused(es.focused)
}

// setFocused moves keyboard focus into or out of the form.
func (es editorState) setFocused(focused bool) editorState {
	es.focused = focused
	es.name.Blur()
	es.price.Blur()
	if !focused {
		return es
	}
	if es.field == fieldPrice {
		es.price.Focus()
	} else {
		es.name.Focus()
	}
	return es
}

// submit validates the form and returns the command that saves it. Edit mode
// issues an update, create mode a create. Submissions while one is in flight
// are ignored with a notice.
func (es editorState) submit(ctx context.Context, svc CatalogService) (editorState, tea.Cmd) {
	if es.saving {
		es.message = msgSaveRunning
		return es, nil
	}
	name := strings.TrimSpace(es.name.Value())
	priceText := strings.TrimSpace(es.price.Value())
	if name == "" || priceText == "" {
		es.message = msgFieldsMissing
		return es, nil
	}
	price, err := catalog.ParsePrice(priceText)
	if err != nil {
		es.message = msgBadPrice
		return es, nil
	}
	if svc == nil {
		return es, nil
	}

	es.saving = true
	es.message = ""
	id := es.editingID
	in := catalog.ProductInput{Name: name, Price: price}
	return es, func() tea.Msg {
		if id == "" {
			p, err := svc.CreateProduct(ctx, in)
			return ProductSavedMsg{Product: p, Err: err}
		}
		p, err := svc.UpdateProduct(ctx, id, in)
		return ProductSavedMsg{ID: id, Product: p, Err: err}
	}
}

// applySaved records a submission result. On success the form is cleared and
// returned to create mode; on failure the fields are left untouched. ok
// reports success.
func (es editorState) applySaved(msg ProductSavedMsg) (next editorState, ok bool) {
	es.saving = false
	if msg.Err != nil {
		fallback := msgAddFailed
		if msg.ID != "" {
			fallback = msgUpdateFailed
		}
		es.message = catalog.UserMessage(msg.Err, fallback)
		return es, false
	}
	es = es.reset()
	if msg.ID != "" {
		es.message = msgUpdated
	} else {
		es.message = msgAdded
	}
	return es, true
}

// Update handles a key for the form. submit reports that enter was pressed.
func (es editorState) Update(msg tea.Msg) (next editorState, cmd tea.Cmd, submit bool) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return es, nil, false
	}
	switch km.String() {
	case "enter":
		return es, nil, true
	case "esc":
		if es.saving {
			es.message = msgSaveRunning
			return es, nil, false
		}
		es = es.reset()
		es.message = ""
		return es, nil, false
	case "up", "down", "shift+tab":
		if es.field == fieldName {
			es.field = fieldPrice
		} else {
			es.field = fieldName
		}
		return es.setFocused(es.focused), nil, false
	}

	if es.field == fieldPrice {
		es.price, cmd = es.price.Update(msg)
	} else {
		es.name, cmd = es.name.Update(msg)
	}
	return es, cmd, false
}

// View renders the form. stale marks an edit target that is no longer in
// the catalog.
func (es editorState) View(width, height int, stale bool) string {
	var b strings.Builder
	if es.editingID == "" {
		b.WriteString(titleStyle.Render("Add product"))
	} else {
		b.WriteString(titleStyle.Render("Edit product " + es.editingID))
		if stale {
			b.WriteString(" " + warnText.Render("(no longer in catalog)"))
		}
	}
	b.WriteString("\n\n")
	b.WriteString(es.name.View())
	b.WriteByte('\n')
	b.WriteString(es.price.View())
	b.WriteString("\n\n")

	switch {
	case es.saving:
		b.WriteString(mutedText.Render("Saving..."))
	case es.message != "":
		b.WriteString(es.message)
	}
	return b.String()
}
