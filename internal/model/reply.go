package model

// Delivery hints how the transport should show a reply. The transport decides what is possible.
type Delivery string

const (
	DeliveryEdit         Delivery = "edit"          // Replace the previous bot message if possible
	DeliveryNew          Delivery = "new"           // Always send a new message
	DeliveryEditKeyboard Delivery = "edit_keyboard" // Only the buttons changed
)

// KeyboardKind describes the input affordance attached to a reply
type KeyboardKind string

const (
	KeyboardInline    KeyboardKind = "inline"     // Buttons carrying callback payloads
	KeyboardTextInput KeyboardKind = "text_input" // Plain typing, custom keyboards removed
)

// Button is one inline button
type Button struct {
	Text    string `json:"text"`
	Payload string `json:"payload"`
}

// Keyboard is a transport-neutral keyboard description
type Keyboard struct {
	Kind KeyboardKind `json:"kind"`
	Rows [][]Button   `json:"rows,omitempty"`
}

// InlineKeyboard builds an inline keyboard with one button per row
func InlineKeyboard(buttons ...Button) *Keyboard {
	rows := make([][]Button, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []Button{b})
	}
	return &Keyboard{Kind: KeyboardInline, Rows: rows}
}

// TextInputKeyboard describes a plain text input
func TextInputKeyboard() *Keyboard {
	return &Keyboard{Kind: KeyboardTextInput}
}

// Reply is what the engine wants shown to the respondent
type Reply struct {
	Text     string    `json:"text"`
	Keyboard *Keyboard `json:"keyboard,omitempty"`
	Delivery Delivery  `json:"delivery"`
}
