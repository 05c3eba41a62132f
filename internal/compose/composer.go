// Package compose превращает плоскую корзину в детерминированную сводку
// заказа и строит ссылку wa.me для отправки сводки в WhatsApp. Все
// функции чистые, без I/O; открытие ссылки и проверка предусловий
// (непустая корзина, имя клиента) лежат на вызывающей стороне.
package compose

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"menu-service/models"
)

// ErrEmptyPhone возвращается, когда после очистки от нецифровых
// символов в номере не осталось ни одной цифры.
var ErrEmptyPhone = errors.New("пустой номер телефона назначения")

const waBaseURL = "https://wa.me/"

// GroupCart сворачивает строки корзины в сводные: одна строка на
// комбинацию (товар, вариант, набор добавок). Идентификаторы добавок
// сортируются перед построением ключа, поэтому порядок выбора добавок
// на группировку не влияет. Порядок групп соответствует первому появлению
// в корзине. Subtotal это сумма unit_total вошедших строк, не
// quantity*цена первой строки.
func GroupCart(lines []models.CartLine) []models.GroupedLine {
	grouped := []models.GroupedLine{}
	index := make(map[string]int)

	for _, line := range lines {
		key := groupKey(line)
		if i, ok := index[key]; ok {
			grouped[i].Quantity++
			grouped[i].Subtotal += line.UnitTotal
			continue
		}

		gl := models.GroupedLine{
			Name:     line.Name,
			Quantity: 1,
			Subtotal: line.UnitTotal,
		}
		if line.Variation != nil {
			gl.VariationName = line.Variation.Name
		}
		for _, a := range line.Accompaniments {
			gl.Accompaniments = append(gl.Accompaniments, a.Name)
		}
		index[key] = len(grouped)
		grouped = append(grouped, gl)
	}
	return grouped
}

func groupKey(line models.CartLine) string {
	variation := "none"
	if line.Variation != nil {
		variation = line.Variation.ID
	}
	ids := make([]string, 0, len(line.Accompaniments))
	for _, a := range line.Accompaniments {
		ids = append(ids, a.ID)
	}
	sort.Strings(ids)
	return line.Name + "\x00" + variation + "\x00" + strings.Join(ids, ",")
}

// GrandTotal складывает subtotal всех сводных строк.
func GrandTotal(grouped []models.GroupedLine) int64 {
	var total int64
	for _, gl := range grouped {
		total += gl.Subtotal
	}
	return total
}

// FormatMessage собирает текст сводки по фиксированному шаблону.
// Никакого кодирования для транспорта здесь нет, это забота
// BuildDeepLink.
func FormatMessage(restaurantName, customerName string, grouped []models.GroupedLine, grandTotal int64, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n", restaurantName)
	fmt.Fprintf(&b, "New order from %s\n\n", customerName)

	for _, gl := range grouped {
		fmt.Fprintf(&b, "%dx %s", gl.Quantity, gl.Name)
		if gl.VariationName != "" {
			fmt.Fprintf(&b, " (%s)", gl.VariationName)
		}
		if len(gl.Accompaniments) > 0 {
			fmt.Fprintf(&b, " + %s", strings.Join(gl.Accompaniments, ", "))
		}
		fmt.Fprintf(&b, " - %d %s\n", gl.Subtotal, currency)
	}

	fmt.Fprintf(&b, "\nTotal: %d %s", grandTotal, currency)
	return b.String()
}

// BuildDeepLink очищает номер до одних цифр, кодирует текст сообщения и
// собирает ссылку wa.me. Номер без единой цифры это ошибка, отправлять
// некуда.
func BuildDeepLink(phone, message string) (string, error) {
	digits := stripNonDigits(phone)
	if digits == "" {
		return "", ErrEmptyPhone
	}
	return waBaseURL + digits + "?text=" + url.QueryEscape(message), nil
}

func stripNonDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
