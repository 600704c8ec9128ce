package document_test

import (
	"testing"

	"github.com/rpggio/sciflow/internal/domain/document"
	"github.com/stretchr/testify/require"
)

var allValues = []document.Endorsement{
	document.EndorsementNotRequired,
	document.EndorsementRequired,
	document.EndorsementDenied,
	document.EndorsementGranted,
}

func TestEndorsements_MethodologyGatesSeekApproval(t *testing.T) {
	for _, methodology := range allValues {
		for _, herbarium := range allValues {
			for _, ethics := range allValues {
				for _, data := range allValues {
					e := document.Endorsements{
						Methodology:  methodology,
						Herbarium:    herbarium,
						AnimalEthics: ethics,
						DataManager:  data,
					}
					want := methodology == document.EndorsementGranted && herbarium.Cleared() && ethics.Cleared()
					require.Equal(t, want, e.ReadyForApproval(), "%+v", e)
				}
			}
		}
	}
}

func TestEndorsements_ApproveChecksAnimalEthicsOnly(t *testing.T) {
	e := document.Endorsements{
		Methodology:  document.EndorsementDenied,
		Herbarium:    document.EndorsementRequired,
		AnimalEthics: document.EndorsementGranted,
	}
	require.True(t, e.ReadyToApprove())
	require.False(t, e.ReadyForApproval())

	e.AnimalEthics = document.EndorsementRequired
	require.False(t, e.ReadyToApprove())
}

func TestEndorsements_ApplyRequirements(t *testing.T) {
	e := document.DefaultEndorsements()
	require.Equal(t, document.EndorsementRequired, e.Methodology)
	require.Equal(t, document.EndorsementNotRequired, e.Herbarium)

	e.ApplyRequirements(document.Specimens{Plants: true})
	require.Equal(t, document.EndorsementRequired, e.Herbarium)
	require.Equal(t, document.EndorsementNotRequired, e.AnimalEthics)

	e.ApplyRequirements(document.Specimens{})
	require.Equal(t, document.EndorsementNotRequired, e.Herbarium)

	e.Herbarium = document.EndorsementGranted
	e.ApplyRequirements(document.Specimens{})
	require.Equal(t, document.EndorsementGranted, e.Herbarium, "reviewed slots keep their value")
}

func TestEndorsements_GetSet(t *testing.T) {
	var e document.Endorsements
	for _, slot := range document.Slots {
		e.Set(slot, document.EndorsementDenied)
		require.Equal(t, document.EndorsementDenied, e.Get(slot))
	}
	require.Empty(t, e.Get("unknown"))
}

func TestDocument_Predicates(t *testing.T) {
	doc := document.New("d1", "p1", document.KindConceptPlan)
	require.True(t, doc.IsDraft())
	require.True(t, doc.Editable(false))
	require.Equal(t, document.Endorsements{}, doc.Endorsements)

	doc.Status = document.StatusInApproval
	require.True(t, doc.IsNearlyApproved())
	require.False(t, doc.IsApproved())
	require.False(t, doc.Editable(false))
	require.True(t, doc.Editable(true))

	doc.Status = document.StatusApproved
	require.True(t, doc.IsApproved())
	require.False(t, doc.IsDraft())

	require.True(t, document.KindProgressReport.Yearly())
	require.False(t, document.KindClosure.Yearly())
}
