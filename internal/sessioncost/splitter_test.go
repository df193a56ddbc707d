package sessioncost

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtshare/courtshare/internal/money"
)

func m(s string) money.Money { return money.MustParse(s) }

func TestComputeCourtAndShuttlecocksAmongSeven(t *testing.T) {
	res, err := Compute([]Component{
		Flat(LabelCourt, m("42.75")),
		Flat(LabelShuttlecock, m("18.50")),
	}, 7)
	require.NoError(t, err)

	assert.True(t, res.Total().Equal(m("61.25")), "total %s", res.Total())
	want, err := m("61.25").DivInt(7)
	require.NoError(t, err)
	assert.True(t, res.Share().Equal(want))
	assert.Equal(t, 7, res.ParticipantCount())

	sum := money.Zero
	for i := 0; i < res.ParticipantCount(); i++ {
		sum = sum.Add(res.Share())
	}
	assert.Equal(t, "$61.25", money.FormatMoney(sum))
	assert.True(t, sum.Equal(res.Total()))

	components := res.Components()
	require.Len(t, components, 2)
	assert.Equal(t, LabelCourt, components[0].Label)
	assert.Equal(t, LabelShuttlecock, components[1].Label)
}

func TestComputeUsageComponents(t *testing.T) {
	res, err := Compute([]Component{
		Usage(LabelCourt, m("15"), m("2.5")),
		Usage(LabelShuttlecock, m("3.20"), m("4")),
		Flat("drinks", m("6")),
	}, 3)
	require.NoError(t, err)
	assert.True(t, res.Total().Equal(m("56.3")), "total %s", res.Total())
	assert.Equal(t, "563/30", res.Share().Exact())
	assert.True(t, res.Share().MulInt(3).Equal(res.Total()))
}

func TestComputeValidation(t *testing.T) {
	for _, n := range []int{0, -1} {
		_, err := Compute([]Component{Flat(LabelCourt, m("10"))}, n)
		require.ErrorIs(t, err, ErrNoParticipants)
	}

	cases := map[string]Component{
		"negative rate":     Usage(LabelCourt, m("-1"), m("2")),
		"negative quantity": Usage(LabelCourt, m("1"), m("-2")),
		"negative flat":     Flat(LabelOther, m("-0.01")),
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Compute([]Component{c}, 4)
			require.ErrorIs(t, err, ErrNegativeInput)
		})
	}

	_, err := Compute([]Component{{Label: "mystery", Kind: "BOGUS"}}, 1)
	require.Error(t, err)
}

func TestComputeEmptySessionIsFree(t *testing.T) {
	res, err := Compute(nil, 5)
	require.NoError(t, err)
	assert.True(t, res.Total().IsZero())
	assert.True(t, res.Share().IsZero())
}

func TestSplitConservationAcrossCounts(t *testing.T) {
	for _, total := range []string{"100", "61.25", "0.07", "1234.56"} {
		for n := 1; n <= 25; n++ {
			res, err := Compute([]Component{Flat(LabelCourt, m(total))}, n)
			require.NoError(t, err)
			sum := money.Zero
			for i := 0; i < n; i++ {
				sum = sum.Add(res.Share())
			}
			require.True(t, sum.Equal(res.Total()), "total %s n %d", total, n)

			minorUnits := money.FromMinor(int64(n), 2)
			assert.True(t, res.Discrepancy(2).Abs().LessThan(minorUnits), "discrepancy %s for n %d", res.Discrepancy(2), n)
		}
	}
}

func TestResultComponentsAreCopied(t *testing.T) {
	res, err := Compute([]Component{Flat(LabelCourt, m("10"))}, 2)
	require.NoError(t, err)
	components := res.Components()
	components[0].Cost = m("999")
	assert.True(t, res.Components()[0].Cost.Equal(m("10")))
}

func TestRateCardFreezesRates(t *testing.T) {
	card := RateCard{
		Version:         1,
		EffectiveFrom:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		CourtHourly:     m("20"),
		ShuttlecockUnit: m("2.5"),
	}
	usage := SessionUsage{CourtHours: m("2"), Shuttlecocks: m("3"), OtherCosts: m("4"), OtherLabel: "water"}
	res, err := card.Compute(usage, 4)
	require.NoError(t, err)
	assert.True(t, res.Total().Equal(m("51.5")))

	card.CourtHourly = m("100")
	frozen, ok := res.RateCard()
	require.True(t, ok)
	assert.True(t, frozen.CourtHourly.Equal(m("20")))
	assert.True(t, res.Total().Equal(m("51.5")))

	components := res.Components()
	require.Len(t, components, 3)
	assert.Equal(t, "water", components[2].Label)
	assert.Equal(t, ComponentFlat, components[2].Kind)
}

func TestRateCardValidate(t *testing.T) {
	valid := RateCard{Version: 1, EffectiveFrom: time.Now(), CourtHourly: m("1"), ShuttlecockUnit: m("1")}
	require.NoError(t, valid.Validate())

	noVersion := valid
	noVersion.Version = 0
	require.ErrorIs(t, noVersion.Validate(), ErrInvalidRateCard)

	negative := valid
	negative.ShuttlecockUnit = m("-1")
	require.ErrorIs(t, negative.Validate(), ErrNegativeInput)

	_, err := negative.Compute(SessionUsage{}, 2)
	require.ErrorIs(t, err, ErrNegativeInput)
}

func TestRateCardsAt(t *testing.T) {
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	cards := RateCards{
		{Version: 2, EffectiveFrom: mar, CourtHourly: m("25")},
		{Version: 1, EffectiveFrom: jan, CourtHourly: m("20")},
		{Version: 3, EffectiveFrom: mar, CourtHourly: m("24")},
	}

	got, err := cards.At(time.Date(2025, 2, 14, 19, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)

	got, err = cards.At(mar)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Version)

	_, err = cards.At(jan.AddDate(0, 0, -1))
	require.ErrorIs(t, err, ErrNoRateCard)
}

func TestRestoreKeepsStoredCosts(t *testing.T) {
	card := &RateCard{Version: 4, EffectiveFrom: time.Now(), CourtHourly: m("12")}
	res, err := Restore([]ComponentCost{
		{Label: LabelCourt, Kind: ComponentUsage, Rate: m("12"), Quantity: m("2"), Cost: m("24")},
		{Label: LabelShuttlecock, Kind: ComponentFlat, Cost: m("6")},
	}, 4, card)
	require.NoError(t, err)
	assert.True(t, res.Total().Equal(m("30")))
	assert.Equal(t, "7.5", res.Share().Exact())
	card.Version = 9
	frozen, ok := res.RateCard()
	require.True(t, ok)
	assert.Equal(t, 4, frozen.Version)

	_, err = Restore(nil, 0, nil)
	require.ErrorIs(t, err, ErrNoParticipants)
}
