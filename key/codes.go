package key

// HID usage codes for keyboard keys (USB HID Keyboard/Keypad usage page).
const (
	// Letters A-Z
	CodeA = 0x04
	CodeB = 0x05
	CodeC = 0x06
	CodeD = 0x07
	CodeE = 0x08
	CodeF = 0x09
	CodeG = 0x0A
	CodeH = 0x0B
	CodeI = 0x0C
	CodeJ = 0x0D
	CodeK = 0x0E
	CodeL = 0x0F
	CodeM = 0x10
	CodeN = 0x11
	CodeO = 0x12
	CodeP = 0x13
	CodeQ = 0x14
	CodeR = 0x15
	CodeS = 0x16
	CodeT = 0x17
	CodeU = 0x18
	CodeV = 0x19
	CodeW = 0x1A
	CodeX = 0x1B
	CodeY = 0x1C
	CodeZ = 0x1D

	// Numbers 1-0 (top row)
	Code1 = 0x1E
	Code2 = 0x1F
	Code3 = 0x20
	Code4 = 0x21
	Code5 = 0x22
	Code6 = 0x23
	Code7 = 0x24
	Code8 = 0x25
	Code9 = 0x26
	Code0 = 0x27

	CodeEnter      = 0x28
	CodeEscape     = 0x29
	CodeBackspace  = 0x2A
	CodeTab        = 0x2B
	CodeSpace      = 0x2C
	CodeMinus      = 0x2D // - and _
	CodeEqual      = 0x2E // = and +
	CodeLeftBrace  = 0x2F // [ and {
	CodeRightBrace = 0x30 // ] and }
	CodeBackslash  = 0x31 // \ and |
	CodeSemicolon  = 0x33 // ; and :
	CodeApostrophe = 0x34 // ' and "
	CodeGrave      = 0x35 // ` and ~
	CodeComma      = 0x36 // , and <
	CodePeriod     = 0x37 // . and >
	CodeSlash      = 0x38 // / and ?
	CodeCapsLock   = 0x39

	CodeF1  = 0x3A
	CodeF2  = 0x3B
	CodeF3  = 0x3C
	CodeF4  = 0x3D
	CodeF5  = 0x3E
	CodeF6  = 0x3F
	CodeF7  = 0x40
	CodeF8  = 0x41
	CodeF9  = 0x42
	CodeF10 = 0x43
	CodeF11 = 0x44
	CodeF12 = 0x45

	CodePrintScreen = 0x46
	CodeScrollLock  = 0x47
	CodePause       = 0x48
	CodeInsert      = 0x49
	CodeHome        = 0x4A
	CodePageUp      = 0x4B
	CodeDelete      = 0x4C
	CodeEnd         = 0x4D
	CodePageDown    = 0x4E

	CodeRight = 0x4F
	CodeLeft  = 0x50
	CodeDown  = 0x51
	CodeUp    = 0x52

	CodeNumLock     = 0x53
	CodeApplication = 0x65 // Application (Windows Menu key)

	// Modifiers occupy 0xE0-0xE7 in the same order as the HID modifier byte.
	CodeLeftCtrl   = 0xE0
	CodeLeftShift  = 0xE1
	CodeLeftAlt    = 0xE2
	CodeLeftGUI    = 0xE3
	CodeRightCtrl  = 0xE4
	CodeRightShift = 0xE5
	CodeRightAlt   = 0xE6
	CodeRightGUI   = 0xE7
)

// Consumer control usages (low byte of the Consumer usage page).
const (
	ConsumerPlayPause = 0xCD
	ConsumerStop      = 0xB7
	ConsumerNext      = 0xB5
	ConsumerPrevious  = 0xB6
	ConsumerMute      = 0xE2
	ConsumerVolumeUp  = 0xE9
	ConsumerVolumeDn  = 0xEA
)

// System control usages (Generic Desktop page).
const (
	SystemPowerDown = 0x81
	SystemSleep     = 0x82
	SystemWakeUp    = 0x83
)

// codeNames maps HID usage codes to human-readable key names.
var codeNames = map[uint8]string{
	CodeA: "A", CodeB: "B", CodeC: "C", CodeD: "D", CodeE: "E", CodeF: "F", CodeG: "G",
	CodeH: "H", CodeI: "I", CodeJ: "J", CodeK: "K", CodeL: "L", CodeM: "M", CodeN: "N",
	CodeO: "O", CodeP: "P", CodeQ: "Q", CodeR: "R", CodeS: "S", CodeT: "T", CodeU: "U",
	CodeV: "V", CodeW: "W", CodeX: "X", CodeY: "Y", CodeZ: "Z",

	Code1: "1", Code2: "2", Code3: "3", Code4: "4", Code5: "5",
	Code6: "6", Code7: "7", Code8: "8", Code9: "9", Code0: "0",

	CodeEnter:      "Enter",
	CodeEscape:     "Escape",
	CodeBackspace:  "Backspace",
	CodeTab:        "Tab",
	CodeSpace:      "Space",
	CodeMinus:      "Minus",
	CodeEqual:      "Equal",
	CodeLeftBrace:  "LeftBrace",
	CodeRightBrace: "RightBrace",
	CodeBackslash:  "Backslash",
	CodeSemicolon:  "Semicolon",
	CodeApostrophe: "Apostrophe",
	CodeGrave:      "Grave",
	CodeComma:      "Comma",
	CodePeriod:     "Period",
	CodeSlash:      "Slash",
	CodeCapsLock:   "CapsLock",

	CodeF1: "F1", CodeF2: "F2", CodeF3: "F3", CodeF4: "F4", CodeF5: "F5", CodeF6: "F6",
	CodeF7: "F7", CodeF8: "F8", CodeF9: "F9", CodeF10: "F10", CodeF11: "F11", CodeF12: "F12",

	CodePrintScreen: "PrintScreen",
	CodeScrollLock:  "ScrollLock",
	CodePause:       "Pause",
	CodeInsert:      "Insert",
	CodeHome:        "Home",
	CodePageUp:      "PageUp",
	CodeDelete:      "Delete",
	CodeEnd:         "End",
	CodePageDown:    "PageDown",

	CodeRight: "Right",
	CodeLeft:  "Left",
	CodeDown:  "Down",
	CodeUp:    "Up",

	CodeNumLock:     "NumLock",
	CodeApplication: "Application",

	CodeLeftCtrl:   "LCtrl",
	CodeLeftShift:  "LShift",
	CodeLeftAlt:    "LAlt",
	CodeLeftGUI:    "LGUI",
	CodeRightCtrl:  "RCtrl",
	CodeRightShift: "RShift",
	CodeRightAlt:   "RAlt",
	CodeRightGUI:   "RGUI",
}

var consumerNames = map[uint8]string{
	ConsumerPlayPause: "PlayPause",
	ConsumerStop:      "MediaStop",
	ConsumerNext:      "MediaNext",
	ConsumerPrevious:  "MediaPrevious",
	ConsumerMute:      "Mute",
	ConsumerVolumeUp:  "VolUp",
	ConsumerVolumeDn:  "VolDown",
}

var systemNames = map[uint8]string{
	SystemPowerDown: "PowerDown",
	SystemSleep:     "Sleep",
	SystemWakeUp:    "WakeUp",
}
