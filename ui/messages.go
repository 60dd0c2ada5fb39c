package ui

import "github.com/hazyhaar/clipbridge/origin"

// Message identifies one user-facing advisory.
type Message int

const (
	// MsgReCopy: a relay hit a stub and could not fetch the real content.
	MsgReCopy Message = iota + 1
	// MsgHelpShortcuts: the browser ignored a clipboard command on a desktop.
	MsgHelpShortcuts
	// MsgHelpOnScreenKeyboard: the browser ignored a clipboard command on mobile.
	MsgHelpOnScreenKeyboard
	// MsgLargeCopyFirst: first complex copy of the session.
	MsgLargeCopyFirst
	// MsgLargeCopyAlreadyStarted: a complex copy while a download runs.
	MsgLargeCopyAlreadyStarted
)

var messageNames = map[Message]string{
	MsgReCopy:                  "re_copy",
	MsgHelpShortcuts:           "help_shortcuts",
	MsgHelpOnScreenKeyboard:    "help_on_screen_keyboard",
	MsgLargeCopyFirst:          "large_copy_first",
	MsgLargeCopyAlreadyStarted: "large_copy_already_started",
}

var messageTexts = map[Message]string{
	MsgReCopy: "Failed to download clipboard, please re-copy",
	MsgHelpShortcuts: "<p>Your browser has very limited access to the clipboard, so use these keyboard shortcuts:" +
		"<ul><li><b>Ctrl+C</b>: For copying.</li><li><b>Ctrl+X</b>: For cutting.</li>" +
		"<li><b>Ctrl+V</b>: For pasting.</li></ul></p>",
	MsgHelpOnScreenKeyboard: "<p>Please use the copy/paste buttons on your on-screen keyboard.</p>",
	MsgLargeCopyFirst: "<p>If you would like to share larger elements of your document with other applications " +
		"it is necessary to first download them onto your device. To do that press the " +
		"\"Start download\" button below, and when complete click \"Confirm copy to clipboard\".</p>" +
		"<p>If you are copy and pasting between documents inside %productName, " +
		"there is no need to download.</p>",
	MsgLargeCopyAlreadyStarted: "<p>A download due to a large copy/paste operation has already started. " +
		"Please, wait for the current download or cancel it before starting a new one</p>",
}

func (m Message) String() string {
	if s, ok := messageNames[m]; ok {
		return s
	}
	return "unknown"
}

// Text returns the English text of m with the product name filled in.
func (m Message) Text(productName string) string {
	return origin.SubstProductName(messageTexts[m], productName)
}
