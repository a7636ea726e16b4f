package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveRoleUsesInjectedSet(t *testing.T) {
	leaders := NewTeamLeaderSet([]string{" Miranda Quantrill ", "", "Judi Hampton"})
	assert.Equal(t, 2, leaders.Len())
	assert.Equal(t, RoleTeamLeader, DeriveRole("Miranda Quantrill", leaders))
	assert.Equal(t, RoleTeamLeader, DeriveRole("Judi Hampton ", leaders))
	assert.Equal(t, RoleRecruitOrAdvisor, DeriveRole("Jane Doe", leaders))
	assert.Equal(t, RoleRecruitOrAdvisor, DeriveRole("miranda quantrill", leaders))
}

func TestParseTeamLeaderSet(t *testing.T) {
	leaders := ParseTeamLeaderSet("Alina Matei, Sara Joiner-Jarrett,,")
	assert.Equal(t, []string{"Alina Matei", "Sara Joiner-Jarrett"}, leaders.Names())
}

func TestOneEightyDaysAddsNinetyDaysToReference(t *testing.T) {
	ninety := time.Date(2024, time.April, 8, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.July, 7, 0, 0, 0, 0, time.UTC), OneEightyDays(ninety))
}

func TestParsePurchase(t *testing.T) {
	p, err := ParsePurchase(" owner ")
	require.NoError(t, err)
	assert.Equal(t, PurchaseOwner, p)

	p, err = ParsePurchase("EARNER")
	require.NoError(t, err)
	assert.Equal(t, PurchaseEarner, p)

	_, err = ParsePurchase("renter")
	assert.True(t, errors.Is(err, ErrMalformedInput))
}

func TestParseSaleMark(t *testing.T) {
	cases := []struct {
		raw  string
		want SaleMark
	}{
		{"", Absent()},
		{"NaN", Absent()},
		{"dnq", DNQMark()},
		{"2024-02-03", DateMark(time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC))},
		{"2024-02-03 00:00:00", DateMark(time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC))},
	}
	for _, tc := range cases {
		got, err := ParseSaleMark(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}

	_, err := ParseSaleMark("next tuesday")
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestSaleMarkValueAndScan(t *testing.T) {
	v, err := Absent().Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = DNQMark().Value()
	require.NoError(t, err)
	assert.Equal(t, "DNQ", v)

	var m SaleMark
	require.NoError(t, m.Scan([]byte("2023-11-30")))
	assert.Equal(t, "2023-11-30", m.String())
	require.NoError(t, m.Scan(nil))
	assert.True(t, m.IsAbsent())
	assert.Error(t, m.Scan(42))
}

func TestSaleMarkJSON(t *testing.T) {
	sales := MemberSales{MemberID: 3, NewcomerDemo: DNQMark()}
	sales.Sales[0] = DateMark(time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC))

	data, err := json.Marshal(sales)
	require.NoError(t, err)

	var decoded MemberSales
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, sales, decoded)
	assert.True(t, decoded.Sales[7].IsAbsent())
}

func TestAmbiguousMatchIsMalformedInput(t *testing.T) {
	assert.ErrorIs(t, ErrAmbiguousMatch, ErrMalformedInput)
	assert.False(t, errors.Is(ErrLookupMiss, ErrMalformedInput))
}
