package model

// Instructions collects the system-authored messages a thread view shows next
// to the dialog. The zero value is incomplete; it becomes complete only by
// building a new value with NewInstructions.
type Instructions struct {
	archiving *Message
}

func NewInstructions(archiving Message) Instructions {
	m := archiving.Clone()
	return Instructions{archiving: &m}
}

// IsComplete reports whether every instruction has been fetched.
func (i Instructions) IsComplete() bool {
	return i.archiving != nil
}

func (i Instructions) Archiving() (Message, bool) {
	if i.archiving == nil {
		return Message{}, false
	}
	return i.archiving.Clone(), true
}
