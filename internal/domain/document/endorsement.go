package document

import "slices"

// Endorsement is the value of one third-party sign-off slot.
type Endorsement string

const (
	EndorsementNotRequired Endorsement = "not_required"
	EndorsementRequired    Endorsement = "required"
	EndorsementDenied      Endorsement = "denied"
	EndorsementGranted     Endorsement = "granted"
)

// Valid reports whether e is a declared endorsement value.
func (e Endorsement) Valid() bool {
	switch e {
	case EndorsementNotRequired, EndorsementRequired, EndorsementDenied, EndorsementGranted:
		return true
	}
	return false
}

// Cleared reports whether the slot no longer blocks progress.
func (e Endorsement) Cleared() bool {
	return e == EndorsementGranted || e == EndorsementNotRequired
}

// Slot names an endorsement field.
type Slot string

const (
	SlotMethodology  Slot = "methodology"
	SlotHerbarium    Slot = "herbarium"
	SlotAnimalEthics Slot = "animal_ethics"
	SlotDataManager  Slot = "data_manager"
)

// Slots lists every endorsement slot.
var Slots = []Slot{SlotMethodology, SlotHerbarium, SlotAnimalEthics, SlotDataManager}

// Valid reports whether s is a declared slot.
func (s Slot) Valid() bool { return slices.Contains(Slots, s) }

// Endorsements holds the sign-off slots of a project plan.
type Endorsements struct {
	Methodology  Endorsement `json:"methodology"`
	Herbarium    Endorsement `json:"herbarium"`
	AnimalEthics Endorsement `json:"animal_ethics"`
	DataManager  Endorsement `json:"data_manager"`
}

// DefaultEndorsements returns the slots of a fresh plan. Methodology review is
// always mandatory; the rest wait for the plan's data to require them.
func DefaultEndorsements() Endorsements {
	return Endorsements{
		Methodology:  EndorsementRequired,
		Herbarium:    EndorsementNotRequired,
		AnimalEthics: EndorsementNotRequired,
		DataManager:  EndorsementNotRequired,
	}
}

// Get returns a slot value.
func (e Endorsements) Get(slot Slot) Endorsement {
	switch slot {
	case SlotMethodology:
		return e.Methodology
	case SlotHerbarium:
		return e.Herbarium
	case SlotAnimalEthics:
		return e.AnimalEthics
	case SlotDataManager:
		return e.DataManager
	}
	return ""
}

// Set assigns a slot value.
func (e *Endorsements) Set(slot Slot, value Endorsement) {
	switch slot {
	case SlotMethodology:
		e.Methodology = value
	case SlotHerbarium:
		e.Herbarium = value
	case SlotAnimalEthics:
		e.AnimalEthics = value
	case SlotDataManager:
		e.DataManager = value
	}
}

// ApplyRequirements flips conditional slots between not_required and required
// to match the plan's specimen data. Slots already reviewed keep their value.
func (e *Endorsements) ApplyRequirements(s Specimens) {
	e.Herbarium = conditional(e.Herbarium, s.Plants)
	e.AnimalEthics = conditional(e.AnimalEthics, s.Animals)
}

func conditional(current Endorsement, needed bool) Endorsement {
	switch {
	case needed && (current == EndorsementNotRequired || current == ""):
		return EndorsementRequired
	case !needed && current == EndorsementRequired:
		return EndorsementNotRequired
	}
	return current
}

// ReadyForApproval gates seek_approval: methodology granted, conditional slots cleared.
func (e Endorsements) ReadyForApproval() bool {
	return e.Methodology == EndorsementGranted && e.Herbarium.Cleared() && e.AnimalEthics.Cleared()
}

// ReadyToApprove gates approve. Only animal ethics is checked at this stage.
func (e Endorsements) ReadyToApprove() bool {
	return e.AnimalEthics.Cleared()
}
