package disasm

import "vnpatch/internal/script"

// PushStringAddress reads one string-address operand onto the stack.
func PushStringAddress(m *Machine) error {
	_, _, err := m.ReadOperand(OperandString)
	return err
}

// ShowMessage pops a message and, when one is pending, the speaker name
// beneath it. The name is emitted first. Entries resolving to the empty
// string are Internal.
func ShowMessage(m *Machine) error {
	msg, err := m.MustPop()
	if err != nil {
		return err
	}
	if name, ok := m.Pop(); ok {
		if err := m.emitUnlessEmpty(name, script.CharacterName); err != nil {
			return err
		}
	}
	return m.emitUnlessEmpty(msg, script.Message)
}

// ShowChoices emits every pending entry as a Message in push order.
func ShowChoices(m *Machine) error {
	for _, e := range m.DrainOrdered() {
		m.Emit(e, script.Message)
	}
	return nil
}

func (m *Machine) emitUnlessEmpty(e StackEntry, kind script.Kind) error {
	empty, err := m.IsEmptyString(e.Address)
	if err != nil {
		return err
	}
	if empty {
		kind = script.Internal
	}
	m.Emit(e, kind)
	return nil
}
