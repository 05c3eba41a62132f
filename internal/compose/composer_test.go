package compose

import (
	"net/url"
	"testing"

	"menu-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pizza() models.MenuItem {
	return models.MenuItem{ID: "item-pizza", Name: "Pizza", BasePrice: 8000}
}

var (
	large  = models.Variation{ID: "v-large", Name: "Large", Price: 10000}
	cheese = models.Accompaniment{ID: "a-cheese", Name: "Extra Cheese", Price: 1000}
	olives = models.Accompaniment{ID: "a-olives", Name: "Olives", Price: 500}
)

func TestGroupCart_AddonOrderDoesNotSplitGroups(t *testing.T) {
	// один и тот же набор добавок, выбранный в разном порядке
	lines := []models.CartLine{
		models.NewCartLine(pizza(), nil, []models.Accompaniment{olives, cheese}),
		models.NewCartLine(pizza(), nil, []models.Accompaniment{cheese, olives}),
	}

	grouped := GroupCart(lines)

	require.Len(t, grouped, 1)
	assert.Equal(t, 2, grouped[0].Quantity)
	assert.Equal(t, int64(2*(8000+1000+500)), grouped[0].Subtotal)
}

func TestGroupCart_VariationSplitsGroups(t *testing.T) {
	lines := []models.CartLine{
		models.NewCartLine(pizza(), nil, nil),
		models.NewCartLine(pizza(), &large, nil),
	}

	grouped := GroupCart(lines)

	require.Len(t, grouped, 2)
	assert.Equal(t, int64(8000), grouped[0].Subtotal)
	assert.Equal(t, "Large", grouped[1].VariationName)
	assert.Equal(t, int64(10000), grouped[1].Subtotal)
}

func TestGroupCart_InsertionOrderPreserved(t *testing.T) {
	coke := models.MenuItem{ID: "item-coke", Name: "Coke", BasePrice: 500}
	lines := []models.CartLine{
		models.NewCartLine(coke, nil, nil),
		models.NewCartLine(pizza(), nil, nil),
		models.NewCartLine(coke, nil, nil),
	}

	grouped := GroupCart(lines)

	require.Len(t, grouped, 2)
	// порядок первого появления, не алфавит и не цена
	assert.Equal(t, "Coke", grouped[0].Name)
	assert.Equal(t, 2, grouped[0].Quantity)
	assert.Equal(t, "Pizza", grouped[1].Name)
}

func TestGroupCart_SubtotalSumsPerUnitTotals(t *testing.T) {
	// две строки попадают в одну группу, но их unit_total различаются:
	// subtotal обязан быть суммой, а не quantity*цена первой строки
	l1 := models.NewCartLine(pizza(), nil, nil)
	l2 := models.NewCartLine(pizza(), nil, nil)
	l2.UnitTotal = 9000

	grouped := GroupCart([]models.CartLine{l1, l2})

	require.Len(t, grouped, 1)
	assert.Equal(t, int64(8000+9000), grouped[0].Subtotal)
}

func TestGroupCart_EmptyCart(t *testing.T) {
	grouped := GroupCart(nil)

	assert.Empty(t, grouped)
	assert.Equal(t, int64(0), GrandTotal(grouped))
}

func TestGrandTotal_MatchesCartSum(t *testing.T) {
	lines := []models.CartLine{
		models.NewCartLine(pizza(), &large, []models.Accompaniment{cheese}),
		models.NewCartLine(pizza(), nil, []models.Accompaniment{olives}),
		models.NewCartLine(pizza(), &large, []models.Accompaniment{cheese}),
	}

	var cartSum int64
	for _, l := range lines {
		cartSum += l.UnitTotal
	}

	grouped := GroupCart(lines)
	assert.Equal(t, cartSum, GrandTotal(grouped))
}

func TestFormatMessage(t *testing.T) {
	grouped := []models.GroupedLine{
		{Name: "Pizza", VariationName: "Large", Accompaniments: []string{"Extra Cheese", "Olives"}, Quantity: 2, Subtotal: 23000},
		{Name: "Coke", Quantity: 1, Subtotal: 500},
	}

	msg := FormatMessage("Chez Lando", "Alice", grouped, 23500, "RWF")

	expected := "*Chez Lando*\n" +
		"New order from Alice\n" +
		"\n" +
		"2x Pizza (Large) + Extra Cheese, Olives - 23000 RWF\n" +
		"1x Coke - 500 RWF\n" +
		"\n" +
		"Total: 23500 RWF"
	assert.Equal(t, expected, msg)
}

func TestBuildDeepLink_RoundTrip(t *testing.T) {
	link, err := BuildDeepLink("+250 788 000 000", "hello\nworld")
	require.NoError(t, err)

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, "wa.me", u.Host)
	assert.Equal(t, "/250788000000", u.Path)
	assert.Equal(t, "hello\nworld", u.Query().Get("text"))
}

func TestBuildDeepLink_EmptyPhone(t *testing.T) {
	_, err := BuildDeepLink("", "msg")
	assert.ErrorIs(t, err, ErrEmptyPhone)

	_, err = BuildDeepLink("+- ()", "msg")
	assert.ErrorIs(t, err, ErrEmptyPhone)
}

func TestNewCartLine_VariationReplacesBasePrice(t *testing.T) {
	line := models.NewCartLine(pizza(), &large, []models.Accompaniment{cheese, olives})

	// цена варианта заменяет базовую, добавки аддитивны
	assert.Equal(t, int64(10000+1000+500), line.UnitTotal)
	assert.NotEmpty(t, line.LineID)
}
