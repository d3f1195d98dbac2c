package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/zap"

	"invest-bot/internal/models"
	"invest-bot/internal/repository"
)

const (
	buyAction        = "buy"
	confirmBuyAction = "confirm_buy"

	packageUnavailableText = "❌ Paket tidak tersedia!"
)

func packageMenu(packages []models.Package) *telego.InlineKeyboardMarkup {
	rows := make([][]telego.InlineKeyboardButton, 0, len(packages))
	for _, p := range packages {
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🛒 Beli "+p.Name).WithCallbackData(packageAction(buyAction, p.ID)),
		))
	}
	return tu.InlineKeyboard(rows...)
}

func packageAction(action string, id uint) string {
	return action + ":" + strconv.FormatUint(uint64(id), 10)
}

// offer loads the package named by the callback argument. A nil package
// means it is gone or can no longer be bought.
func (b *Bot) offer(ctx context.Context, args []string) (*models.Package, error) {
	if len(args) == 0 {
		return nil, nil
	}
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil || id == 0 {
		return nil, nil
	}
	pkg, err := b.packages.FindByID(ctx, uint(id))
	if err != nil || pkg == nil || !pkg.IsAvailable() {
		return nil, err
	}
	return pkg, nil
}

func (b *Bot) confirmPurchase(ctx context.Context, from telego.User, args []string) (reply, error) {
	user, err := b.member(ctx, from)
	if err != nil || user == nil {
		return unknownUser(err)
	}
	pkg, err := b.offer(ctx, args)
	if err != nil {
		return reply{}, err
	}
	if pkg == nil {
		return reply{text: packageUnavailableText}, nil
	}
	if user.Balance.LessThan(pkg.Price) {
		return b.insufficientBalance(user, pkg), nil
	}

	return reply{
		text: fmt.Sprintf(`🛒 *Konfirmasi Pembelian*

📦 Paket: %s
💰 Harga: %s
⏱️ Durasi: %d hari
📈 Return Harian: %s
💵 Saldo Setelah Pembelian: %s

Apakah Anda yakin ingin membeli paket ini?`,
			escape(pkg.Name),
			rupiah(pkg.Price),
			pkg.DurationDays,
			rupiah(pkg.DailyReturnAmount),
			rupiah(user.Balance.Sub(pkg.Price)),
		),
		keyboard: tu.InlineKeyboard(tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("✅ Ya, Beli Sekarang").WithCallbackData(packageAction(confirmBuyAction, pkg.ID)),
			tu.InlineKeyboardButton("❌ Batal").WithCallbackData("packages"),
		)),
	}, nil
}

func (b *Bot) purchase(ctx context.Context, from telego.User, args []string) (reply, error) {
	user, err := b.member(ctx, from)
	if err != nil || user == nil {
		return unknownUser(err)
	}
	pkg, err := b.offer(ctx, args)
	if err != nil {
		return reply{}, err
	}
	if pkg == nil {
		return reply{text: packageUnavailableText}, nil
	}

	tx, err := b.transactions.Purchase(ctx, user.ID, pkg.ID)
	switch {
	case errors.Is(err, repository.ErrInsufficientBalance):
		return b.insufficientBalance(user, pkg), nil
	case errors.Is(err, repository.ErrPackageUnavailable):
		return reply{text: packageUnavailableText}, nil
	case err != nil:
		return reply{}, err
	}
	b.log.Info("Package purchased",
		zap.Uint("user_id", user.ID),
		zap.Uint("package_id", pkg.ID),
		zap.Uint("transaction_id", tx.ID),
	)

	return reply{
		text: fmt.Sprintf(`✅ *Pembelian Berhasil!*

📦 Paket: %s
💰 Harga: %s
⏱️ Durasi: %d hari
📈 Return Harian: %s
💵 Saldo Sekarang: %s

Paket akan aktif selama %d hari.`,
			escape(pkg.Name),
			rupiah(tx.Amount),
			pkg.DurationDays,
			rupiah(pkg.DailyReturnAmount),
			rupiah(user.Balance.Sub(tx.Amount)),
			pkg.DurationDays,
		),
		keyboard: tu.InlineKeyboard(
			tu.InlineKeyboardRow(tu.InlineKeyboardButton("📊 Portfolio").WithCallbackData("portfolio")),
			tu.InlineKeyboardRow(tu.InlineKeyboardButton("📦 Lihat Paket Lain").WithCallbackData("packages")),
		),
	}, nil
}

func (b *Bot) insufficientBalance(user *models.User, pkg *models.Package) reply {
	return reply{text: fmt.Sprintf(`❌ *Saldo tidak mencukupi!*

💰 Saldo Anda: %s
💳 Harga Paket: %s
💸 Kurang: %s

💡 *Top up saldo hubungi admin:* %s`,
		rupiah(user.Balance),
		rupiah(pkg.Price),
		rupiah(pkg.Price.Sub(user.Balance)),
		escape(b.adminContact),
	)}
}
