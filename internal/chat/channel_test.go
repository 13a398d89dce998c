package chat

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/barbershop/internal/model"
)

func TestValidate_AcceptsGrammar(t *testing.T) {
	cases := []struct {
		raw  string
		kind model.ChannelKind
	}{
		{"pre_14_abcdef123456", model.KindPreBooking},
		{"pre_all_ABCDEF", model.KindPreBooking},
		{"pre_0_aBc123", model.KindPreBooking},
		{"bk_77_0123456789abcdef0123456789abcdef01234567", model.KindAppointment},
		{"bk_deadbeef", model.KindAppointment},
		{"bk_123456", model.KindAppointment},
	}
	for _, tc := range cases {
		ch, err := Validate(tc.raw)
		require.NoError(t, err, tc.raw)
		require.Equal(t, tc.kind, ch.Kind, tc.raw)
		require.Equal(t, tc.raw, ch.String())
	}
}

func TestValidate_ExtractsIDs(t *testing.T) {
	ch, err := Validate("pre_14_abcdef123456")
	require.NoError(t, err)
	shop, ok := ch.Shop()
	require.True(t, ok)
	require.Equal(t, int64(14), shop)
	_, ok = ch.Appointment()
	require.False(t, ok)

	ch, err = Validate("pre_all_abcdef")
	require.NoError(t, err)
	require.True(t, ch.General())
	_, ok = ch.Shop()
	require.False(t, ok)

	ch, err = Validate("bk_901_abcdef")
	require.NoError(t, err)
	appt, ok := ch.Appointment()
	require.True(t, ok)
	require.Equal(t, int64(901), appt)

	ch, err = Validate("bk_abcdef")
	require.NoError(t, err)
	_, ok = ch.Appointment()
	require.False(t, ok)
}

func TestValidate_RejectsSingleCharacterMutations(t *testing.T) {
	// Каждая строка отличается от валидной одним символом вне hex/id сегментов.
	bad := []string{
		"Pre_14_abcdef123456",
		"pre-14_abcdef123456",
		"pre_14-abcdef123456",
		"prx_14_abcdef123456",
		"pre_ALL_abcdef",
		"pre_alk_abcdef",
		"Bk_77_abcdef",
		"bk-77_abcdef",
		"bk_77-abcdef",
		"bx_abcdef",
		" pre_14_abcdef123456",
		"pre_14_abcdef123456 ",
		"pre_14_abcdef123456\n",
	}
	for _, raw := range bad {
		_, err := Validate(raw)
		require.Error(t, err, raw)
		require.True(t, IsCode(err, CodeInvalidChannel), raw)
	}
}

func TestValidate_RejectsHexBounds(t *testing.T) {
	cases := []string{
		"",
		"pre_14_abcde",
		"pre_14_" + "a123456789a123456789a123456789a1234567890",
		"bk_abcdeg",
		"pre_14_",
		"pre__abcdef",
		"bk__abcdef",
		"pre_99999999999999999999_abcdef",
		"other_14_abcdef",
	}
	for _, raw := range cases {
		_, err := Validate(raw)
		require.Error(t, err, raw)
	}
}

func TestClassify(t *testing.T) {
	require.Equal(t, model.KindPreBooking, Classify("pre_3_abcdef"))
	require.Equal(t, model.KindAppointment, Classify("bk_abcdef"))
	require.Equal(t, model.KindOther, Classify("nope"))
}

func TestAuthorize(t *testing.T) {
	r, err := Authorize("customer")
	require.NoError(t, err)
	require.Equal(t, model.RoleCustomer, r)

	r, err = Authorize("owner")
	require.NoError(t, err)
	require.Equal(t, model.RoleOwner, r)

	_, err = Authorize("admin")
	require.True(t, IsCode(err, CodeForbidden))

	_, err = Authorize("")
	require.True(t, IsCode(err, CodeUnauthorized))
}

func TestNormalizeRole(t *testing.T) {
	require.Equal(t, model.RoleOwner, NormalizeRole("owner"))
	require.Equal(t, model.RoleCustomer, NormalizeRole("customer"))
	require.Equal(t, model.RoleCustomer, NormalizeRole("admin"))
	require.Equal(t, model.RoleCustomer, NormalizeRole(""))
}

func TestCodeOf(t *testing.T) {
	require.Equal(t, Code(""), CodeOf(nil))
	require.Equal(t, CodeWriteFailed, CodeOf(NewError(CodeWriteFailed, "x", nil)))
	require.Equal(t, CodeInternal, CodeOf(errString("boom")))
}

type errString string

func (e errString) Error() string { return string(e) }
