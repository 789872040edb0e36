// Package trigger manages Bitrix24 outbound event subscriptions and turns
// inbound event deliveries into workflow items.
//
// A subscription is created with event.bind when a workflow is activated
// and removed with event.unbind when it is deactivated. The registration is
// kept in a Store keyed by workflow ID so deactivation knows which event to
// unbind.
package trigger

import (
	"errors"
	"fmt"
)

// ErrUnknownEvent is returned for event names outside the catalog.
var ErrUnknownEvent = errors.New("unknown trigger event")

// Event categories.
const (
	CategoryDeal     = "crmDeal"
	CategoryLead     = "crmLead"
	CategoryContact  = "crmContact"
	CategoryCompany  = "crmCompany"
	CategoryTasks    = "tasks"
	CategoryMessages = "messages"
)

// Event is one subscribable Bitrix24 event.
type Event struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	Value    string `json:"value"`
}

var catalog = []Event{
	{CategoryDeal, "Deal Created", "ONCRMDEALADD"},
	{CategoryDeal, "Deal Updated", "ONCRMDEALUPDATE"},
	{CategoryDeal, "Deal Stage Changed", "ONCRMDEALMOVE"},
	{CategoryDeal, "Deal Deleted", "ONCRMDEALDELETION"},

	{CategoryLead, "Lead Created", "ONCRMLEADADD"},
	{CategoryLead, "Lead Updated", "ONCRMLEADUPDATE"},
	{CategoryLead, "Lead Status Changed", "ONCRMLEADSTATUSCHANGED"},
	{CategoryLead, "Lead Deleted", "ONCRMLEADDELETION"},

	{CategoryContact, "Contact Created", "ONCRMCONTACTADD"},
	{CategoryContact, "Contact Updated", "ONCRMCONTACTUPDATE"},
	{CategoryContact, "Contact Deleted", "ONCRMCONTACTDELETION"},

	{CategoryCompany, "Company Created", "ONCRMCOMPANYADD"},
	{CategoryCompany, "Company Updated", "ONCRMCOMPANYUPDATE"},
	{CategoryCompany, "Company Deleted", "ONCRMCOMPANYDELETION"},

	{CategoryTasks, "Task Created", "ONTASKADD"},
	{CategoryTasks, "Task Updated", "ONTASKUPDATE"},
	{CategoryTasks, "Task Deleted", "ONTASKDELETE"},
	{CategoryTasks, "Task Comment Added", "ONTASKCOMMENTADD"},

	{CategoryMessages, "New Open Channel Message", "ONIMBOTMESSAGEADD"},
	{CategoryMessages, "Open Line Session Created", "ONOPENLINESSESSIONSTART"},
	{CategoryMessages, "Open Line Session Closed", "ONOPENLINESSESSIONFINISH"},
	{CategoryMessages, "Chat Message Received", "ONIMMESSAGEADD"},
	{CategoryMessages, "User Joined Chat", "ONIMJOINCHAT"},
}

// Events returns the catalog, optionally restricted to one category.
func Events(category string) []Event {
	out := make([]Event, 0, len(catalog))
	for _, e := range catalog {
		if category == "" || e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

// ValidateEvent returns ErrUnknownEvent unless value is a catalog event.
func ValidateEvent(value string) error {
	for _, e := range catalog {
		if e.Value == value {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownEvent, value)
}
