package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mymmrac/telego"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invest-bot/internal/config"
	"invest-bot/internal/models"
	"invest-bot/internal/repository"
)

type fakeUsers struct {
	rows      []*models.User
	createErr error
	findErr   error
	touched   []uint
}

func (f *fakeUsers) FindByTelegramID(_ context.Context, telegramID int64) (*models.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, u := range f.rows {
		if u.TelegramID != nil && *u.TelegramID == telegramID {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) FindByReferralCode(_ context.Context, code string) (*models.User, error) {
	for _, u := range f.rows {
		if u.ReferralCode == code {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) Create(_ context.Context, user *models.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	code, err := models.NewReferralCode()
	if err != nil {
		return err
	}
	user.ID = uint(len(f.rows) + 1)
	user.ReferralCode = code
	f.rows = append(f.rows, user)
	return nil
}

func (f *fakeUsers) TouchActivity(_ context.Context, id uint, _ time.Time) error {
	f.touched = append(f.touched, id)
	return nil
}

func (f *fakeUsers) CountReferred(_ context.Context, code string) (int64, error) {
	var n int64
	for _, u := range f.rows {
		if u.ReferredBy == code {
			n++
		}
	}
	return n, nil
}

func (f *fakeUsers) FindAll(_ context.Context, filter repository.UserFilter, p repository.Pagination) ([]models.User, repository.Page, error) {
	out := make([]models.User, 0)
	for _, u := range f.rows {
		if filter.ReferredBy != "" && u.ReferredBy != filter.ReferredBy {
			continue
		}
		out = append(out, *u)
	}
	total := int64(len(out))
	if len(out) > p.Limit {
		out = out[:p.Limit]
	}
	return out, repository.NewPage(p, total), nil
}

type fakePackages struct {
	rows []models.Package
	err  error
}

func (f *fakePackages) FindByID(_ context.Context, id uint) (*models.Package, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.rows {
		if f.rows[i].ID == id {
			p := f.rows[i]
			return &p, nil
		}
	}
	return nil, nil
}

type fakeTransactions struct {
	rows        []models.Transaction
	purchases   []uint
	purchaseErr error
}

func (f *fakeTransactions) FindAll(_ context.Context, filter repository.TransactionFilter, p repository.Pagination) ([]models.Transaction, repository.Page, error) {
	out := make([]models.Transaction, 0)
	for _, tx := range f.rows {
		if filter.UserID != nil && tx.UserID != *filter.UserID {
			continue
		}
		out = append(out, tx)
	}
	total := int64(len(out))
	if len(out) > p.Limit {
		out = out[:p.Limit]
	}
	return out, repository.NewPage(p, total), nil
}

func (f *fakeTransactions) Purchase(_ context.Context, userID, packageID uint) (*models.Transaction, error) {
	if f.purchaseErr != nil {
		return nil, f.purchaseErr
	}
	f.purchases = append(f.purchases, packageID)
	return &models.Transaction{
		ID:        uint(len(f.purchases)),
		UserID:    userID,
		PackageID: &packageID,
		Type:      models.TransactionInvestment,
		Amount:    decimal.NewFromInt(100000),
		Status:    models.StatusCompleted,
	}, nil
}

func (f *fakePackages) FindAvailable(context.Context) ([]models.Package, error) {
	return f.rows, f.err
}

type fakeLedger struct {
	ledger repository.Ledger
}

func (f *fakeLedger) Ledger(context.Context, uint, time.Time) (repository.Ledger, error) {
	return f.ledger, nil
}

func newTestBot() (*Bot, *fakeUsers, *fakePackages, *fakeLedger) {
	users := &fakeUsers{}
	packages := &fakePackages{}
	ledger := &fakeLedger{}
	b := newBot(config.Telegram{AdminContact: "@invest_admin"}, Deps{
		Users:        users,
		Packages:     packages,
		Transactions: &fakeTransactions{},
		Ledger:       ledger,
	})
	b.now = func() time.Time { return time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC) }
	return b, users, packages, ledger
}

func member(users *fakeUsers, telegramID int64) *models.User {
	u := &models.User{
		ID:           uint(len(users.rows) + 1),
		TelegramID:   &telegramID,
		FirstName:    "Ann",
		ReferralCode: "ANN00001",
		Balance:      decimal.NewFromInt(250000),
		IsActive:     true,
		CreatedAt:    time.Date(2024, 1, 9, 8, 0, 0, 0, time.UTC),
	}
	users.rows = append(users.rows, u)
	return u
}

func callbacks(k *telego.InlineKeyboardMarkup) []string {
	var out []string
	for _, row := range k.InlineKeyboard {
		for _, button := range row {
			out = append(out, button.CallbackData)
		}
	}
	return out
}

func TestStartRegistersNewUser(t *testing.T) {
	b, users, _, _ := newTestBot()

	r, err := b.start(context.Background(), telego.User{ID: 1001, FirstName: "Ann", Username: "ann"}, nil)
	require.NoError(t, err)

	require.Len(t, users.rows, 1)
	created := users.rows[0]
	assert.Equal(t, int64(1001), *created.TelegramID)
	assert.Equal(t, "ann", created.Username)
	assert.True(t, created.IsActive)
	assert.True(t, created.Balance.IsZero())
	assert.Regexp(t, `^[A-Z0-9]{8}$`, created.ReferralCode)
	require.NotNil(t, created.LastActivity)

	assert.Contains(t, r.text, "🚀 *Selamat datang di Invest Bot!*")
	assert.Contains(t, r.text, "Halo Ann! 👋")
	assert.Contains(t, r.text, "💡 *Mulai investasi sekarang!*")
	require.NotNil(t, r.keyboard)

	assert.Equal(t, []string{"packages", "portfolio", "balance", "claim", "referral", "profile", "history", "referral_list"}, callbacks(r.keyboard))
}

func TestStartKnownUser(t *testing.T) {
	b, users, _, _ := newTestBot()
	u := member(users, 1001)

	r, err := b.start(context.Background(), telego.User{ID: 1001, FirstName: "Ann"}, nil)
	require.NoError(t, err)
	assert.Len(t, users.rows, 1)
	assert.Equal(t, []uint{u.ID}, users.touched)
	assert.Contains(t, r.text, "Selamat datang")
}

func TestStartWithReferralCode(t *testing.T) {
	b, users, _, _ := newTestBot()
	member(users, 1)

	_, err := b.start(context.Background(), telego.User{ID: 2, FirstName: "Budi"}, []string{"ann00001"})
	require.NoError(t, err)
	require.Len(t, users.rows, 2)
	assert.Equal(t, "ANN00001", users.rows[1].ReferredBy)

	_, err = b.start(context.Background(), telego.User{ID: 3, FirstName: "Cici"}, []string{"NOPE"})
	require.NoError(t, err)
	assert.Empty(t, users.rows[2].ReferredBy)
}

func TestStartDeactivatedAccount(t *testing.T) {
	b, users, _, _ := newTestBot()
	users.createErr = repository.ErrDuplicateTelegramID

	r, err := b.start(context.Background(), telego.User{ID: 9, FirstName: "Gone"}, nil)
	require.NoError(t, err)
	assert.Contains(t, r.text, "dinonaktifkan")
	assert.Contains(t, r.text, `@invest\_admin`)
	assert.Nil(t, r.keyboard)

	users.createErr = nil
	u := member(users, 10)
	u.IsActive = false
	r, err = b.start(context.Background(), telego.User{ID: 10}, nil)
	require.NoError(t, err)
	assert.Contains(t, r.text, "dinonaktifkan")
}

func TestCommandsNeedRegistration(t *testing.T) {
	b, _, _, _ := newTestBot()
	builders := map[string]builder{
		"portfolio": b.portfolio,
		"balance":   b.balance,
		"claim":     b.claim,
		"referral":  b.referral,
		"profile":   b.profile,
		"history":   b.history,
		"referrals": b.referralList,
		"buy":       b.confirmPurchase,
		"confirm":   b.purchase,
	}

	for name, build := range builders {
		t.Run(name, func(t *testing.T) {
			r, err := build(context.Background(), telego.User{ID: 404}, nil)
			require.NoError(t, err)
			assert.Equal(t, unknownUserText, r.text)
		})
	}
}

func TestRunReplacesErrors(t *testing.T) {
	b, users, _, _ := newTestBot()
	users.findErr = errors.New("db down")

	r := b.run(context.Background(), "balance", telego.User{ID: 1}, nil, b.balance)
	assert.Equal(t, errorText, r.text)
}

func TestListPackages(t *testing.T) {
	b, _, packages, _ := newTestBot()

	r, err := b.listPackages(context.Background(), telego.User{}, nil)
	require.NoError(t, err)
	assert.Equal(t, noPackagesText, r.text)

	packages.rows = []models.Package{
		{ID: 1, Name: "Gold", Price: decimal.NewFromInt(1500000), DurationDays: 30, DailyReturnAmount: decimal.NewFromInt(75000), IsActive: true},
		{ID: 2, Name: "Silver_Plus", Description: "Paket hemat", Price: decimal.NewFromInt(500000), DurationDays: 10, DailyReturnAmount: decimal.NewFromInt(20000), IsActive: true},
	}
	r, err = b.listPackages(context.Background(), telego.User{}, nil)
	require.NoError(t, err)

	assert.Contains(t, r.text, "📦 *Paket Investasi yang Tersedia:*")
	assert.Contains(t, r.text, "*1. Gold*")
	assert.Contains(t, r.text, "💰 Harga: Rp 1.500.000")
	assert.Contains(t, r.text, "⏱️ Durasi: 30 hari")
	assert.Contains(t, r.text, "📈 Return Harian: Rp 75.000")
	assert.Contains(t, r.text, "🎯 Total Return: Rp 2.250.000")
	assert.Contains(t, r.text, "📝 Tidak ada deskripsi")
	assert.Contains(t, r.text, `*2. Silver\_Plus*`)
	assert.Contains(t, r.text, "📝 Paket hemat")
	assert.NotContains(t, r.text, "hubungi admin")
	require.NotNil(t, r.keyboard)
	assert.Equal(t, []string{"buy:1", "buy:2"}, callbacks(r.keyboard))
	assert.Equal(t, "🛒 Beli Gold", r.keyboard.InlineKeyboard[0][0].Text)

	packages.err = errors.New("timeout")
	_, err = b.listPackages(context.Background(), telego.User{}, nil)
	assert.Error(t, err)
}

func TestPortfolioReadsLedger(t *testing.T) {
	b, users, _, ledger := newTestBot()
	member(users, 1)
	ledger.ledger = repository.Ledger{
		TotalInvested:     decimal.NewFromInt(2000000),
		TotalClaimed:      decimal.NewFromInt(150000),
		ActiveInvestments: 2,
	}

	r, err := b.portfolio(context.Background(), telego.User{ID: 1}, nil)
	require.NoError(t, err)
	assert.Contains(t, r.text, "💰 *Saldo:* Rp 250.000")
	assert.Contains(t, r.text, "📈 *Total Investasi:* Rp 2.000.000")
	assert.Contains(t, r.text, "🎯 *Total Return:* Rp 150.000")
	assert.Contains(t, r.text, "📦 *Paket Aktif:* 2")
}

func TestClaim(t *testing.T) {
	b, users, _, ledger := newTestBot()
	member(users, 1)

	r, err := b.claim(context.Background(), telego.User{ID: 1}, nil)
	require.NoError(t, err)
	assert.Contains(t, r.text, "Status:* Belum ada paket aktif")

	ledger.ledger = repository.Ledger{ActiveInvestments: 1, DailyReturn: decimal.NewFromInt(50000)}
	r, err = b.claim(context.Background(), telego.User{ID: 1}, nil)
	require.NoError(t, err)
	assert.Contains(t, r.text, "📈 *Return Harian:* Rp 50.000")
	assert.NotContains(t, r.text, "Belum ada paket aktif")
}

func TestReferral(t *testing.T) {
	b, users, _, _ := newTestBot()
	member(users, 1)
	users.rows = append(users.rows, &models.User{ReferredBy: "ANN00001"}, &models.User{ReferredBy: "ANN00001"})

	r, err := b.referral(context.Background(), telego.User{ID: 1}, nil)
	require.NoError(t, err)
	assert.Contains(t, r.text, "🆔 *Referral Code:* `ANN00001`")
	assert.Contains(t, r.text, "👥 *Jumlah Referral:* 2")
	assert.Contains(t, r.text, "💰 *Bonus Referral:* Rp 0")

	b.username = "invest_bot"
	r, err = b.referral(context.Background(), telego.User{ID: 1}, nil)
	require.NoError(t, err)
	assert.Contains(t, r.text, `https://t.me/invest\_bot?start=ANN00001`)
}

func TestProfile(t *testing.T) {
	b, users, _, _ := newTestBot()
	member(users, 77)

	r, err := b.profile(context.Background(), telego.User{ID: 77}, nil)
	require.NoError(t, err)
	assert.Contains(t, r.text, "🆔 *Telegram ID:* 77")
	assert.Contains(t, r.text, "👤 *Nama:* Ann\n")
	assert.Contains(t, r.text, "📱 *Username:* Tidak ada")
	assert.Contains(t, r.text, "📧 *Email:* Tidak ada")
	assert.Contains(t, r.text, "👥 *Referred By:* Tidak")
	assert.Contains(t, r.text, "📅 *Terdaftar:* 09/01/2024")
	assert.Contains(t, r.text, "📊 *Status:* Aktif")
}

func TestHelpNamesAdminContact(t *testing.T) {
	b, _, _, _ := newTestBot()

	r, err := b.help(context.Background(), telego.User{}, nil)
	require.NoError(t, err)
	assert.Contains(t, r.text, "📚 *Bantuan Invest Bot*")
	assert.Contains(t, r.text, `Hubungi admin: @invest\_admin`)
}

func TestBotCommands(t *testing.T) {
	var names []string
	for _, c := range botCommands {
		names = append(names, c.Command)
		assert.NotEmpty(t, c.Description)
	}
	assert.Equal(t, []string{"start", "help", "packages", "portfolio", "balance", "claim", "referral", "profile", "history", "referral_list"}, names)
}

func TestHistory(t *testing.T) {
	b, users, _, _ := newTestBot()
	u := member(users, 1)
	txs := b.transactions.(*fakeTransactions)

	r, err := b.history(context.Background(), telego.User{ID: 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, noHistoryText, r.text)
	assert.Equal(t, []string{"packages"}, callbacks(r.keyboard))

	at := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)
	txs.rows = []models.Transaction{
		{UserID: u.ID, Type: models.TransactionInvestment, Amount: decimal.NewFromInt(100000), Status: models.StatusCompleted, Description: "Pembelian paket Gold_1", CreatedAt: at},
		{UserID: u.ID, Type: models.TransactionWithdrawal, Amount: decimal.NewFromInt(50000), Status: models.StatusPending, CreatedAt: at},
		{UserID: u.ID, Type: models.TransactionDeposit, Amount: decimal.NewFromInt(1000), Status: models.StatusFailed, CreatedAt: at},
		{UserID: u.ID, Type: models.TransactionClaim, Amount: decimal.NewFromInt(10), Status: models.StatusCancelled, CreatedAt: at},
		{UserID: u.ID + 1, Type: models.TransactionReferral, Amount: decimal.NewFromInt(5), Status: models.StatusCompleted, CreatedAt: at},
	}
	r, err = b.history(context.Background(), telego.User{ID: 1}, nil)
	require.NoError(t, err)
	assert.Contains(t, r.text, "Total: 4 transaksi")
	assert.Contains(t, r.text, "*1. Investment*\n✅ Status: completed\n💰 Jumlah: Rp 100.000\n📅 Tanggal: 04/03/2024 09:30")
	assert.Contains(t, r.text, `📝 Deskripsi: Pembelian paket Gold\_1`)
	assert.Contains(t, r.text, "*2. Withdrawal*\n⏳ Status: pending")
	assert.Contains(t, r.text, "❌ Status: failed")
	assert.Contains(t, r.text, "🚫 Status: cancelled")
	assert.Contains(t, r.text, "📝 Deskripsi: Tidak ada deskripsi")
	assert.NotContains(t, r.text, "Referral")
}

func TestHistoryShowsLatestTwenty(t *testing.T) {
	b, users, _, _ := newTestBot()
	u := member(users, 1)
	txs := b.transactions.(*fakeTransactions)
	for i := 0; i < 25; i++ {
		txs.rows = append(txs.rows, models.Transaction{UserID: u.ID, Type: models.TransactionClaim, Status: models.StatusCompleted})
	}

	r, err := b.history(context.Background(), telego.User{ID: 1}, nil)
	require.NoError(t, err)
	assert.Contains(t, r.text, "Total: 25 transaksi")
	assert.Contains(t, r.text, "*20. Claim*")
	assert.NotContains(t, r.text, "*21.")
	assert.Contains(t, r.text, "Menampilkan 20 transaksi terbaru.")
}

func TestReferralList(t *testing.T) {
	b, users, _, _ := newTestBot()
	member(users, 1)

	r, err := b.referralList(context.Background(), telego.User{ID: 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, noReferralsText, r.text)
	assert.Equal(t, []string{"referral"}, callbacks(r.keyboard))

	joined := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	users.rows = append(users.rows,
		&models.User{FirstName: "Budi_B", ReferredBy: "ANN00001", IsActive: true, CreatedAt: joined},
		&models.User{Username: "cici", ReferredBy: "ANN00001", CreatedAt: joined},
		&models.User{FirstName: "Dodi", ReferredBy: "OTHER001", IsActive: true},
	)
	r, err = b.referralList(context.Background(), telego.User{ID: 1}, nil)
	require.NoError(t, err)
	assert.Contains(t, r.text, "Total: 2 referral")
	assert.Contains(t, r.text, "*1. Budi\\_B*\n📅 Bergabung: 01/02/2024\n📊 Status: Aktif")
	assert.Contains(t, r.text, "*2. cici*")
	assert.Contains(t, r.text, "📊 Status: Tidak Aktif")
	assert.NotContains(t, r.text, "Dodi")
}

func buyablePackage(packages *fakePackages) models.Package {
	limit := 10
	p := models.Package{
		ID:                3,
		Name:              "Starter",
		Price:             decimal.NewFromInt(100000),
		DurationDays:      30,
		DailyReturnAmount: decimal.NewFromInt(5000),
		IsActive:          true,
		MaxPurchases:      &limit,
	}
	packages.rows = append(packages.rows, p)
	return p
}

func TestConfirmPurchase(t *testing.T) {
	b, users, packages, _ := newTestBot()
	member(users, 1)
	buyablePackage(packages)

	r, err := b.confirmPurchase(context.Background(), telego.User{ID: 1}, []string{"3"})
	require.NoError(t, err)
	assert.Contains(t, r.text, "🛒 *Konfirmasi Pembelian*")
	assert.Contains(t, r.text, "💰 Harga: Rp 100.000")
	assert.Contains(t, r.text, "💵 Saldo Setelah Pembelian: Rp 150.000")
	assert.Equal(t, []string{"confirm_buy:3", "packages"}, callbacks(r.keyboard))
	assert.Empty(t, b.transactions.(*fakeTransactions).purchases)
}

func TestConfirmPurchaseRejects(t *testing.T) {
	b, users, packages, _ := newTestBot()
	u := member(users, 1)
	p := buyablePackage(packages)
	soldOut := p
	soldOut.ID, soldOut.CurrentPurchases = 4, 10
	inactive := p
	inactive.ID, inactive.IsActive = 5, false
	packages.rows = append(packages.rows, soldOut, inactive)

	for _, args := range [][]string{nil, {"x"}, {"0"}, {"99"}, {"4"}, {"5"}} {
		r, err := b.confirmPurchase(context.Background(), telego.User{ID: 1}, args)
		require.NoError(t, err)
		assert.Equal(t, packageUnavailableText, r.text, args)
	}

	u.Balance = decimal.NewFromInt(40000)
	r, err := b.confirmPurchase(context.Background(), telego.User{ID: 1}, []string{"3"})
	require.NoError(t, err)
	assert.Contains(t, r.text, "❌ *Saldo tidak mencukupi!*")
	assert.Contains(t, r.text, "💸 Kurang: Rp 60.000")
	assert.Nil(t, r.keyboard)
}

func TestPurchase(t *testing.T) {
	b, users, packages, _ := newTestBot()
	member(users, 1)
	buyablePackage(packages)
	txs := b.transactions.(*fakeTransactions)

	r, err := b.purchase(context.Background(), telego.User{ID: 1}, []string{"3"})
	require.NoError(t, err)
	assert.Equal(t, []uint{3}, txs.purchases)
	assert.Contains(t, r.text, "✅ *Pembelian Berhasil!*")
	assert.Contains(t, r.text, "💵 Saldo Sekarang: Rp 150.000")
	assert.Contains(t, r.text, "Paket akan aktif selama 30 hari.")
	assert.Equal(t, []string{"portfolio", "packages"}, callbacks(r.keyboard))
}

func TestPurchaseRepositoryRejections(t *testing.T) {
	b, users, packages, _ := newTestBot()
	member(users, 1)
	buyablePackage(packages)
	txs := b.transactions.(*fakeTransactions)

	txs.purchaseErr = repository.ErrInsufficientBalance
	r, err := b.purchase(context.Background(), telego.User{ID: 1}, []string{"3"})
	require.NoError(t, err)
	assert.Contains(t, r.text, "Saldo tidak mencukupi")

	txs.purchaseErr = repository.ErrPackageUnavailable
	r, err = b.purchase(context.Background(), telego.User{ID: 1}, []string{"3"})
	require.NoError(t, err)
	assert.Equal(t, packageUnavailableText, r.text)

	txs.purchaseErr = errors.New("deadlock detected")
	r = b.run(context.Background(), confirmBuyAction, telego.User{ID: 1}, []string{"3"}, b.purchase)
	assert.Equal(t, errorText, r.text)
}

func TestRupiah(t *testing.T) {
	tests := []struct {
		in   decimal.Decimal
		want string
	}{
		{decimal.Zero, "Rp 0"},
		{decimal.NewFromInt(999), "Rp 999"},
		{decimal.NewFromInt(1500000), "Rp 1.500.000"},
		{decimal.RequireFromString("75000.00"), "Rp 75.000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rupiah(tt.in), tt.in.String())
	}
}

func TestEscape(t *testing.T) {
	assert.Equal(t, `a\_b\*c\[d`, escape("a_b*c[d"))
	assert.Equal(t, "plain", escape("plain"))
}
