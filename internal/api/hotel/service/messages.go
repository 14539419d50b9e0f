package hotelService

import (
	"HotelClaimBot/internal/entity"
	"fmt"
	"strings"
)

var (
	cancelButton = entity.Button{Label: "Cancel", Payload: entity.ButtonCancel}
	menuButtons  = []entity.Button{
		{Label: "Search hotel", Payload: entity.ButtonSearch},
		{Label: "Start new hotel", Payload: entity.ButtonStart},
	}
)

func (m *Machine) prompt(s entity.DialogueSession) entity.OutboundMessage {
	switch s.State {
	case entity.StateAwaitingSearchName:
		return ask(s.UserID, "Enter the hotel name to search for.")
	case entity.StateAwaitingSearchAddress:
		return ask(s.UserID, "Enter the hotel address.")
	case entity.StateAwaitingStartName:
		return ask(s.UserID, "Enter the name of the new hotel.")
	case entity.StateAwaitingStartAddress:
		return ask(s.UserID, "Enter the address of the new hotel.")
	case entity.StateAwaitingDisambiguation:
		return candidatesMessage(s.UserID, s.Candidates)
	case entity.StateConfirmDuplicate:
		return duplicateMessage(s.UserID, s.Candidates)
	case entity.StateAwaitingQuestionnaire:
		if s.Question >= 0 && s.Question < len(m.questions) {
			q := m.questions[s.Question]
			return ask(s.UserID, fmt.Sprintf("(%d/%d) %s", s.Question+1, len(m.questions), q.Prompt))
		}
	}
	return menuMessage(s.UserID)
}

func ask(userID, text string) entity.OutboundMessage {
	return entity.OutboundMessage{
		UserID:  userID,
		Text:    text,
		Buttons: []entity.Button{cancelButton},
	}
}

func menuMessage(userID string) entity.OutboundMessage {
	return entity.OutboundMessage{
		UserID:  userID,
		Text:    "What would you like to do?",
		Buttons: append([]entity.Button(nil), menuButtons...),
	}
}

func cancelledMessage(userID string) entity.OutboundMessage {
	return entity.OutboundMessage{UserID: userID, Text: "Cancelled."}
}

func invalidInputMessage(userID string) entity.OutboundMessage {
	return entity.OutboundMessage{UserID: userID, Text: "Sorry, I did not understand that."}
}

func unavailableMessage(userID string) entity.OutboundMessage {
	return entity.OutboundMessage{
		UserID: userID,
		Text:   "The hotel list is unavailable right now. Please try again shortly.",
	}
}

func resubmitMessage(userID string) entity.OutboundMessage {
	return entity.OutboundMessage{
		UserID: userID,
		Text:   "The hotel could not be saved because the list changed at the same time. Please send your answer again.",
	}
}

func notFoundMessage(userID, name string) entity.OutboundMessage {
	text := "No matching hotel was found."
	if name != "" {
		text = fmt.Sprintf("No hotel matching %q was found.", name)
	}
	return entity.OutboundMessage{
		UserID: userID,
		Text:   text + " Do you want to start a new one?",
		Buttons: []entity.Button{
			{Label: "Start new hotel", Payload: entity.ButtonStart},
			{Label: "Main menu", Payload: entity.ButtonMenu},
		},
	}
}

func matchMessage(userID string, h entity.Hotel) entity.OutboundMessage {
	var b strings.Builder
	b.WriteString("Found:\n")
	writeHotel(&b, h)
	if h.Surveyed() {
		b.WriteString("\nThis hotel is already surveyed.")
	}
	return entity.OutboundMessage{UserID: userID, Text: b.String()}
}

func savedMessage(userID string, h entity.Hotel) entity.OutboundMessage {
	return entity.OutboundMessage{
		UserID: userID,
		Text:   fmt.Sprintf("Saved %s (%s). Thank you!", h.HotelName, h.Address),
	}
}

func candidatesMessage(userID string, candidates []entity.Candidate) entity.OutboundMessage {
	var b strings.Builder
	b.WriteString("Several hotels match. Which one did you mean?")

	buttons := make([]entity.Button, 0, len(candidates)+2)
	for i, c := range candidates {
		fmt.Fprintf(&b, "\n%d. %s, %s", i+1, c.Hotel.HotelName, c.Hotel.Address)
		buttons = append(buttons, entity.Button{
			Label:   fmt.Sprintf("%d. %s", i+1, c.Hotel.HotelName),
			Payload: fmt.Sprintf("%s%d", entity.ButtonPickPrefix, i+1),
		})
	}
	buttons = append(buttons, entity.Button{Label: "None of these", Payload: entity.ButtonNone}, cancelButton)

	return entity.OutboundMessage{UserID: userID, Text: b.String(), Buttons: buttons}
}

func duplicateMessage(userID string, candidates []entity.Candidate) entity.OutboundMessage {
	var b strings.Builder
	b.WriteString("This hotel looks like one that is already on the list:\n")
	if len(candidates) > 0 {
		writeHotel(&b, candidates[0].Hotel)
	}
	if len(candidates) > 1 {
		fmt.Fprintf(&b, "\n(and %d more similar)", len(candidates)-1)
	}

	return entity.OutboundMessage{
		UserID: userID,
		Text:   b.String(),
		Buttons: []entity.Button{
			{Label: "Use existing", Payload: entity.ButtonReuse},
			{Label: "Continue anyway", Payload: entity.ButtonContinue},
			cancelButton,
		},
	}
}

func writeHotel(b *strings.Builder, h entity.Hotel) {
	fmt.Fprintf(b, "%s\n%s", h.HotelName, h.Address)
	if status := h.Fields[entity.HotelFieldStatus]; status != "" {
		fmt.Fprintf(b, "\nStatus: %s", status)
	}
	if comment := h.Fields[entity.HotelFieldComment]; comment != "" {
		fmt.Fprintf(b, "\nComment: %s", comment)
	}
}
