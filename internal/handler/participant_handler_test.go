package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/tradenet/internal/model"
)

func newParticipantBody() map[string]interface{} {
	return map[string]interface{}{
		"name":      "ПАО Посредник",
		"email":     "PPP@list.ru",
		"country":   "Россия",
		"city":      "Москва",
		"street":    "Московская",
		"house":     "5",
		"unit_name": "ИП",
	}
}

func ownBody(unit model.UnitName, level interface{}, supplier interface{}) map[string]interface{} {
	return map[string]interface{}{
		"name":      "ООО Мир",
		"email":     "vvv@list.ru",
		"country":   "Другая",
		"city":      "N",
		"street":    "New",
		"house":     "36/5",
		"unit_name": unit,
		"level":     level,
		"supplier":  supplier,
		"debt":      "0.00",
	}
}

func (f *fixture) updateURL() string {
	return fmt.Sprintf("/participants/update/%d/", f.participant.ID)
}

func TestCreateParticipant(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/participants/create/", newParticipantBody(), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, int64(2), f.count(&model.Participant{}))

	body := decode(t, rec)
	assert.Equal(t, "PPP@list.ru", body["email"])
	assert.Equal(t, "ИП", body["unit_name"])
	assert.NotContains(t, body, "debt")
	assert.NotContains(t, body, "level")
}

func TestCreateParticipantMissingName(t *testing.T) {
	f := newFixture(t)

	body := newParticipantBody()
	delete(body, "name")

	rec := f.do(http.MethodPost, "/participants/create/", body, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"name": ["This field is required."]}`, rec.Body.String())
	assert.Equal(t, int64(1), f.count(&model.Participant{}))
}

func TestCreateParticipantFieldErrors(t *testing.T) {
	f := newFixture(t)

	body := newParticipantBody()
	body["email"] = "vvv@list.ru"
	body["unit_name"] = "фабрика"
	body["house"] = "12345678901"
	body["supplier"] = 404

	rec := f.do(http.MethodPost, "/participants/create/", body, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{
		"email": ["участник с таким Адрес электронной почты уже существует."],
		"unit_name": ["\"фабрика\" is not a valid choice."],
		"house": ["Ensure this field has no more than 10 characters."],
		"supplier": ["Invalid pk \"404\" - object does not exist."]
	}`, rec.Body.String())
}

func TestCreateFactoryDefaultsToLevelZero(t *testing.T) {
	f := newFixture(t)

	body := newParticipantBody()
	body["unit_name"] = "завод"

	rec := f.do(http.MethodPost, "/participants/create/", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created model.Participant
	require.NoError(t, f.db.Where("email = ?", "PPP@list.ru").First(&created).Error)
	require.NotNil(t, created.Level)
	assert.Equal(t, model.LevelZero, *created.Level)
	assert.True(t, created.Debt.Equal(decimal.Zero))
}

func TestCreateParticipantWithSupplier(t *testing.T) {
	f := newFixture(t)

	body := newParticipantBody()
	body["level"] = "1"
	body["supplier"] = f.participant.ID

	rec := f.do(http.MethodPost, "/participants/create/", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body["email"] = "other@list.ru"
	body["level"] = "2"
	rec = f.do(http.MethodPost, "/participants/create/", body, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"non_field_errors": ["Вы выбрали поставщика с уровнем '0', Ваш уровень должен быть '1'."]}`, rec.Body.String())
	assert.Equal(t, int64(2), f.count(&model.Participant{}))
}

func TestUpdateParticipant(t *testing.T) {
	f := newFixture(t)

	body := ownBody(model.UnitFactory, "0", nil)
	body["country"] = "Россия"

	rec := f.do(http.MethodPut, f.updateURL(), body, f.user)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Россия", decode(t, rec)["country"])
}

func TestUpdateParticipantKeepsDebt(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(f.participant).Update("debt", decimal.RequireFromString("150.50")).Error)

	body := ownBody(model.UnitFactory, "0", nil)
	body["debt"] = "0.00"

	rec := f.do(http.MethodPut, f.updateURL(), body, f.user)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "150.50", decode(t, rec)["debt"])
}

func TestPatchParticipant(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPatch, f.updateURL(), map[string]interface{}{"city": "Казань"}, f.user)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, "Казань", body["city"])
	assert.Equal(t, "ООО Мир", body["name"])
	assert.Equal(t, "0", body["level"])
}

func TestPutParticipantRequiresAllFields(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPut, f.updateURL(), map[string]interface{}{"city": "Казань"}, f.user)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	for _, field := range []string{"name", "email", "country", "street", "house", "unit_name"} {
		assert.Contains(t, body, field)
	}
	assert.NotContains(t, body, "city")
}

func TestUpdateParticipantInvalidEmail(t *testing.T) {
	f := newFixture(t)

	body := ownBody(model.UnitFactory, "0", nil)
	body["email"] = "null"

	rec := f.do(http.MethodPut, f.updateURL(), body, f.user)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []interface{}{"Enter a valid email address."}, decode(t, rec)["email"])
}

func TestUpdateParticipantHierarchy(t *testing.T) {
	cases := []struct {
		name     string
		unit     model.UnitName
		level    string
		supplier func(f *fixture) interface{}
		message  string
	}{
		{
			name:    "factory off level zero",
			unit:    model.UnitFactory,
			level:   "2",
			message: "Завод всегда находится на нулевом(0) уровне.",
		},
		{
			name:    "retail on level zero",
			unit:    model.UnitRetailNetwork,
			level:   "0",
			message: "'Розничная сеть' и 'ИП' могут быть только на 1-м или 2-м уровне.",
		},
		{
			name:  "supplied factory",
			unit:  model.UnitFactory,
			level: "0",
			supplier: func(f *fixture) interface{} {
				return f.createParticipant("ПАО Посредник", "PPP@list.ru", model.UnitFactory, model.LevelZero, nil).ID
			},
			message: "Если есть поставщик то Ваш уровень должен быть '1' или '2'.",
		},
		{
			name:     "self supply",
			unit:     model.UnitSoleProprietor,
			level:    "1",
			supplier: func(f *fixture) interface{} { return f.participant.ID },
			message:  "Покупатель и поставщик не могут быть одним лицом.",
		},
		{
			name:  "level zero supplier",
			unit:  model.UnitSoleProprietor,
			level: "2",
			supplier: func(f *fixture) interface{} {
				return f.createParticipant("ПАО Завод", "PPP@list.ru", model.UnitFactory, model.LevelZero, nil).ID
			},
			message: "Вы выбрали поставщика с уровнем '0', Ваш уровень должен быть '1'.",
		},
		{
			name:  "level one supplier",
			unit:  model.UnitSoleProprietor,
			level: "1",
			supplier: func(f *fixture) interface{} {
				return f.createParticipant("ПАО розничная сеть", "PPP@list.ru", model.UnitRetailNetwork, model.LevelOne, nil).ID
			},
			message: "Вы выбрали поставщика с уровнем '1', Ваш уровень должен быть '2'.",
		},
		{
			name:  "level two supplier",
			unit:  model.UnitSoleProprietor,
			level: "2",
			supplier: func(f *fixture) interface{} {
				return f.createParticipant("ПАО розничная сеть", "PPP@list.ru", model.UnitRetailNetwork, model.LevelTwo, nil).ID
			},
			message: "Поставщик с уровнем '2' не осуществляет поставки.",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			var supplier interface{}
			if tc.supplier != nil {
				supplier = tc.supplier(f)
			}

			rec := f.do(http.MethodPut, f.updateURL(), ownBody(tc.unit, tc.level, supplier), f.user)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, fmt.Sprintf(`{"non_field_errors": [%q]}`, tc.message), rec.Body.String())
		})
	}
}

func TestUpdateParticipantAcceptsValidSupplier(t *testing.T) {
	f := newFixture(t)
	factory := f.createParticipant("ПАО Завод", "PPP@list.ru", model.UnitFactory, model.LevelZero, nil)

	rec := f.do(http.MethodPut, f.updateURL(), ownBody(model.UnitRetailNetwork, "1", factory.ID), f.user)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(factory.ID), decode(t, rec)["supplier"])
}

func TestUpdateParticipantOnlyOwnEmployer(t *testing.T) {
	f := newFixture(t)
	other := f.createParticipant("ПАО Завод", "PPP@list.ru", model.UnitFactory, model.LevelZero, nil)

	rec := f.do(http.MethodPut, fmt.Sprintf("/participants/update/%d/", other.ID), ownBody(model.UnitFactory, "0", nil), f.user)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail": "No Participant matches the given query."}`, rec.Body.String())
}

func TestDeleteParticipant(t *testing.T) {
	f := newFixture(t)
	customer := f.createParticipant("ПАО Посредник", "PPP@list.ru", model.UnitRetailNetwork, model.LevelOne, &f.participant.ID)
	product := &model.Product{ProductName: "телефон", Model: "sony", OwnerID: &f.participant.ID}
	require.NoError(t, f.db.Create(product).Error)

	rec := f.do(http.MethodDelete, fmt.Sprintf("/participants/delete/%d/", f.participant.ID), nil, f.user)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assert.Equal(t, int64(1), f.count(&model.Participant{}))

	var reloaded model.Participant
	require.NoError(t, f.db.First(&reloaded, customer.ID).Error)
	assert.Nil(t, reloaded.SupplierID)

	var orphan model.Product
	require.NoError(t, f.db.First(&orphan, product.ID).Error)
	assert.Nil(t, orphan.OwnerID)

	var user model.User
	require.NoError(t, f.db.First(&user, f.user.ID).Error)
	assert.Nil(t, user.EmployerID)
}

func TestDeleteParticipantNotStaff(t *testing.T) {
	f := newFixture(t)
	f.update("is_staff", false)

	rec := f.do(http.MethodDelete, fmt.Sprintf("/participants/delete/%d/", f.participant.ID), nil, f.user)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, int64(1), f.count(&model.Participant{}))
}

func TestDeleteParticipantMissing(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodDelete, "/participants/delete/101/", nil, f.user)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, int64(1), f.count(&model.Participant{}))
}

func TestDeleteParticipantOtherEmail(t *testing.T) {
	f := newFixture(t)
	other := f.createParticipant("ПАО Завод", "PPP@list.ru", model.UnitFactory, model.LevelZero, nil)

	rec := f.do(http.MethodDelete, fmt.Sprintf("/participants/delete/%d/", other.ID), nil, f.user)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, int64(2), f.count(&model.Participant{}))
}

func TestListParticipants(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/participants/", nil, f.user)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, fmt.Sprintf(`[{
		"id": %d,
		"name": "ООО Мир",
		"email": "vvv@list.ru",
		"country": "Другая",
		"city": "N",
		"street": "New",
		"house": "36/5",
		"unit_name": "завод",
		"level": "0",
		"supplier": null,
		"debt": "0.00"
	}]`, f.participant.ID), rec.Body.String())
}

func TestListParticipantsOrderAndFilters(t *testing.T) {
	f := newFixture(t)
	second := f.createParticipant("ПАО Посредник", "PPP@list.ru", model.UnitRetailNetwork, model.LevelOne, &f.participant.ID)
	require.NoError(t, f.db.Model(second).Updates(map[string]interface{}{"country": "Россия", "city": "Москва"}).Error)

	rec := f.do(http.MethodGet, "/participants/", nil, f.user)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Regexp(t, fmt.Sprintf(`^\[\{"id":%d,.*\{"id":%d,`, second.ID, f.participant.ID), rec.Body.String())

	rec = f.do(http.MethodGet, "/participants/?country="+url.QueryEscape("Россия"), nil, f.user)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "PPP@list.ru")
	assert.NotContains(t, rec.Body.String(), "vvv@list.ru")

	rec = f.do(http.MethodGet, "/participants/?city=N", nil, f.user)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "PPP@list.ru")
}

func TestListParticipantsNotEmployee(t *testing.T) {
	f := newFixture(t)
	f.update("employer_id", nil)

	rec := f.do(http.MethodGet, "/participants/", nil, f.user)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"detail": "You do not have permission to perform this action."}`, rec.Body.String())
}

func TestListParticipantsAnonymous(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/participants/", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"detail": "Authentication credentials were not provided."}`, rec.Body.String())
}

func TestGetParticipant(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, fmt.Sprintf("/participants/view/%d/", f.participant.ID), nil, f.user)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ООО Мир", decode(t, rec)["name"])

	rec = f.do(http.MethodGet, "/participants/view/999/", nil, f.user)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail": "No Participant matches the given query."}`, rec.Body.String())
}

func TestClearDebt(t *testing.T) {
	f := newFixture(t)
	other := f.createParticipant("ПАО Посредник", "PPP@list.ru", model.UnitRetailNetwork, model.LevelOne, &f.participant.ID)
	untouched := f.createParticipant("ИП Петров", "petrov@list.ru", model.UnitSoleProprietor, model.LevelTwo, &other.ID)
	require.NoError(t, f.db.Model(&model.Participant{}).Where("1 = 1").Update("debt", decimal.RequireFromString("99.90")).Error)

	rec := f.do(http.MethodPost, "/participants/clear-debt/", map[string]interface{}{"ids": []uint{f.participant.ID, other.ID}}, f.user)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"cleared": 2}`, rec.Body.String())

	var cleared, kept model.Participant
	require.NoError(t, f.db.First(&cleared, other.ID).Error)
	assert.Equal(t, "0.00", cleared.Debt.StringFixed(2))
	require.NoError(t, f.db.First(&kept, untouched.ID).Error)
	assert.Equal(t, "99.90", kept.Debt.StringFixed(2))

	f.update("is_staff", false)
	rec = f.do(http.MethodPost, "/participants/clear-debt/", map[string]interface{}{"ids": []uint{untouched.ID}}, f.user)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPatchParticipantLevelKeepsBuyersValid(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(f.participant).Updates(map[string]interface{}{
		"unit_name": string(model.UnitRetailNetwork),
		"level":     string(model.LevelOne),
	}).Error)
	f.createParticipant("ИП Петров", "petrov@list.ru", model.UnitSoleProprietor, model.LevelTwo, &f.participant.ID)

	rec := f.do(http.MethodPatch, f.updateURL(), map[string]interface{}{"level": "2"}, f.user)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"non_field_errors": ["Уровень участника не соответствует уровню его покупателей."]}`, rec.Body.String())

	var stored model.Participant
	require.NoError(t, f.db.First(&stored, f.participant.ID).Error)
	assert.Equal(t, model.LevelOne, stored.LevelValue())

	rec = f.do(http.MethodPatch, f.updateURL(), map[string]interface{}{"city": "Казань"}, f.user)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
