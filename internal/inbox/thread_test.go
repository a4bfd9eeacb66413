package inbox

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ownerID    = uuid.MustParse("00000000-0000-0000-0000-0000000000a1")
	inquirerID = uuid.MustParse("00000000-0000-0000-0000-0000000000b2")
)

func sampleThread(id string, at int64) Thread {
	return Thread{
		ID:            uuid.MustParse(id),
		ListingID:     uuid.MustParse("00000000-0000-0000-0000-00000000c0de"),
		ListingTitle:  "Room A",
		OwnerID:       ownerID,
		OwnerName:     "Olive",
		InquirerID:    inquirerID,
		InquirerName:  "Ivan",
		LastMessageAt: time.Unix(at, 0).UTC(),
	}
}

func TestDisplayForDependsOnRole(t *testing.T) {
	th := sampleThread("00000000-0000-0000-0000-000000000001", 100)

	asOwner := DisplayFor(ownerID, th)
	assert.Equal(t, "Ivan", asOwner.Title)
	assert.Equal(t, "Listing: Room A", asOwner.Subtitle)

	asInquirer := DisplayFor(inquirerID, th)
	assert.Equal(t, "Room A", asInquirer.Title)
	assert.Equal(t, "From: Olive", asInquirer.Subtitle)

	assert.Equal(t, RoleOwner, RoleOf(ownerID, th))
	assert.Equal(t, RoleInquirer, RoleOf(inquirerID, th))
}

func TestOrderingIsViewerIndependent(t *testing.T) {
	a := sampleThread("00000000-0000-0000-0000-000000000003", 100)
	b := sampleThread("00000000-0000-0000-0000-000000000001", 100)
	c := sampleThread("00000000-0000-0000-0000-000000000002", 300)

	list := []Thread{a, b, c}
	Sort(list)
	require.Equal(t, []uuid.UUID{c.ID, b.ID, a.ID}, []uuid.UUID{list[0].ID, list[1].ID, list[2].ID})

	ownerViews := Views(ownerID, list)
	inquirerViews := Views(inquirerID, list)
	for i := range list {
		assert.Equal(t, ownerViews[i].ID, inquirerViews[i].ID)
	}
}

func TestFilterMatchesListingOrCounterpart(t *testing.T) {
	room := sampleThread("00000000-0000-0000-0000-000000000001", 100)
	loft := sampleThread("00000000-0000-0000-0000-000000000002", 200)
	loft.ListingTitle = "Sunny Loft"
	loft.InquirerName = "Bea"
	loft.OwnerName = "Quinn"
	list := []Thread{loft, room}

	assert.Len(t, Filter(ownerID, list, ""), 2)
	assert.Equal(t, []Thread{loft}, Filter(ownerID, list, "loft"))
	assert.Equal(t, []Thread{loft}, Filter(ownerID, list, "BEA"), "owner searches inquirer names")
	assert.Empty(t, Filter(inquirerID, list, "bea"), "inquirer's counterpart is the owner")
	assert.Equal(t, []Thread{loft}, Filter(inquirerID, list, "quinn"))
	assert.Equal(t, []Thread{loft, room}, list, "input untouched")
}
