package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/zap"

	"invest-bot/internal/models"
)

const (
	errorText          = "❌ Maaf, terjadi kesalahan. Silakan coba lagi nanti."
	unknownUserText    = "❌ User tidak ditemukan. Silakan gunakan /start terlebih dahulu."
	unknownCommandText = "❌ Perintah tidak dikenal"
	noPackagesText     = "❌ Tidak ada paket investasi yang tersedia saat ini."
)

var botCommands = []telego.BotCommand{
	{Command: "start", Description: "Mulai bot dan lihat menu utama"},
	{Command: "help", Description: "Bantuan dan daftar perintah"},
	{Command: "packages", Description: "Lihat paket investasi yang tersedia"},
	{Command: "portfolio", Description: "Lihat portfolio investasi Anda"},
	{Command: "balance", Description: "Cek saldo akun"},
	{Command: "claim", Description: "Claim return harian"},
	{Command: "referral", Description: "Sistem referral dan bonus"},
	{Command: "profile", Description: "Profil pengguna"},
	{Command: "history", Description: "Riwayat transaksi"},
	{Command: "referral_list", Description: "Daftar user yang Anda undang"},
}

type reply struct {
	text     string
	keyboard *telego.InlineKeyboardMarkup
}

func mainMenu() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("📦 Paket Investasi").WithCallbackData("packages"),
			tu.InlineKeyboardButton("📊 Portfolio").WithCallbackData("portfolio"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("💰 Saldo").WithCallbackData("balance"),
			tu.InlineKeyboardButton("🎯 Claim").WithCallbackData("claim"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("👥 Referral").WithCallbackData("referral"),
			tu.InlineKeyboardButton("👤 Profil").WithCallbackData("profile"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("📋 Riwayat").WithCallbackData("history"),
			tu.InlineKeyboardButton("📜 Daftar Referral").WithCallbackData("referral_list"),
		),
	)
}

// enroll creates the account for a first /start. A referral code argument
// links the new user to its owner.
func (b *Bot) enroll(ctx context.Context, from telego.User, args []string) (*models.User, error) {
	telegramID := from.ID
	user := &models.User{
		TelegramID: &telegramID,
		Username:   from.Username,
		FirstName:  from.FirstName,
		LastName:   from.LastName,
		IsActive:   true,
	}
	now := b.now()
	user.LastActivity = &now

	if len(args) > 0 {
		code := strings.ToUpper(strings.TrimSpace(args[0]))
		referrer, err := b.users.FindByReferralCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if referrer != nil {
			user.ReferredBy = referrer.ReferralCode
		}
	}

	if err := b.users.Create(ctx, user); err != nil {
		return nil, err
	}
	b.log.Info("User registered",
		zap.Int64("telegram_id", telegramID),
		zap.String("referral_code", user.ReferralCode),
		zap.String("referred_by", user.ReferredBy),
	)
	return user, nil
}

func welcomeText(u *models.User) string {
	return fmt.Sprintf(`🚀 *Selamat datang di Invest Bot!*

Halo %s! 👋

💰 *Fitur Utama:*
• Paket investasi dengan return harian
• Sistem referral dengan bonus
• Portfolio tracking
• Claim return harian

📱 *Gunakan menu di bawah atau ketik perintah:*
/help - Bantuan lengkap
/packages - Lihat paket investasi
/portfolio - Portfolio Anda
/balance - Cek saldo
/claim - Claim return harian
/referral - Sistem referral
/profile - Profil pengguna
/history - Riwayat transaksi

💡 *Mulai investasi sekarang!*`, escape(u.FirstName))
}

func deactivatedText(contact string) string {
	return "⚠️ Akun Anda telah dinonaktifkan. Hubungi admin: " + escape(contact)
}

func (b *Bot) help(context.Context, telego.User, []string) (reply, error) {
	return reply{text: fmt.Sprintf(`📚 *Bantuan Invest Bot*

🔹 *Perintah Dasar:*
/start - Mulai bot dan lihat menu utama
/help - Tampilkan bantuan ini

💰 *Investasi:*
/packages - Lihat paket investasi yang tersedia
/portfolio - Lihat portfolio investasi Anda
/balance - Cek saldo akun
/claim - Claim return harian

👥 *Referral:*
/referral - Sistem referral dan bonus
/referral\_list - Daftar user yang Anda undang
/profile - Profil pengguna
/history - Riwayat transaksi

💡 *Cara Investasi:*
1. Top up saldo melalui admin
2. Lihat paket dengan /packages
3. Tekan tombol Beli pada paket yang sesuai
4. Konfirmasi pembelian
5. Paket akan aktif dan dapat return harian

❓ *Butuh bantuan lebih lanjut?*
Hubungi admin: %s`, escape(b.adminContact))}, nil
}

func (b *Bot) listPackages(ctx context.Context, _ telego.User, _ []string) (reply, error) {
	packages, err := b.packages.FindAvailable(ctx)
	if err != nil {
		return reply{}, err
	}
	if len(packages) == 0 {
		return reply{text: noPackagesText}, nil
	}

	var sb strings.Builder
	sb.WriteString("📦 *Paket Investasi yang Tersedia:*\n\n")
	for i, p := range packages {
		description := p.Description
		if description == "" {
			description = "Tidak ada deskripsi"
		}
		fmt.Fprintf(&sb, "*%d. %s*\n", i+1, escape(p.Name))
		fmt.Fprintf(&sb, "💰 Harga: %s\n", rupiah(p.Price))
		fmt.Fprintf(&sb, "⏱️ Durasi: %d hari\n", p.DurationDays)
		fmt.Fprintf(&sb, "📈 Return Harian: %s\n", rupiah(p.DailyReturnAmount))
		fmt.Fprintf(&sb, "🎯 Total Return: %s\n", rupiah(p.TotalReturn()))
		fmt.Fprintf(&sb, "📝 %s\n\n", escape(description))
	}
	sb.WriteString("💡 *Pilih paket di bawah untuk membeli.*")
	return reply{text: sb.String(), keyboard: packageMenu(packages)}, nil
}

func (b *Bot) portfolio(ctx context.Context, from telego.User, _ []string) (reply, error) {
	user, err := b.member(ctx, from)
	if err != nil || user == nil {
		return unknownUser(err)
	}
	ledger, err := b.ledger.Ledger(ctx, user.ID, b.now())
	if err != nil {
		return reply{}, err
	}

	footer := "💡 *Mulai investasi sekarang dengan /packages*"
	if ledger.ActiveInvestments > 0 {
		footer = "💡 *Tambah investasi dengan /packages*"
	}
	return reply{text: fmt.Sprintf(`📊 *Portfolio Investasi*

👤 *User:* %s
💰 *Saldo:* %s
📈 *Total Investasi:* %s
🎯 *Total Return:* %s
📦 *Paket Aktif:* %d

%s`,
		escape(user.FirstName),
		rupiah(user.Balance),
		rupiah(ledger.TotalInvested),
		rupiah(ledger.TotalClaimed),
		ledger.ActiveInvestments,
		footer,
	)}, nil
}

func (b *Bot) balance(ctx context.Context, from telego.User, _ []string) (reply, error) {
	user, err := b.member(ctx, from)
	if err != nil || user == nil {
		return unknownUser(err)
	}
	return reply{text: fmt.Sprintf(`💰 *Saldo Akun*

👤 *User:* %s
💳 *Saldo:* %s
🆔 *Referral Code:* %s

💡 *Top up saldo hubungi admin:* %s`,
		escape(user.FirstName),
		rupiah(user.Balance),
		user.ReferralCode,
		escape(b.adminContact),
	)}, nil
}

func (b *Bot) claim(ctx context.Context, from telego.User, _ []string) (reply, error) {
	user, err := b.member(ctx, from)
	if err != nil || user == nil {
		return unknownUser(err)
	}
	ledger, err := b.ledger.Ledger(ctx, user.ID, b.now())
	if err != nil {
		return reply{}, err
	}

	status := "📅 *Status:* Belum ada paket aktif\n\n💡 *Beli paket investasi terlebih dahulu dengan /packages*"
	if ledger.ActiveInvestments > 0 {
		status = fmt.Sprintf("📦 *Paket Aktif:* %d\n📈 *Return Harian:* %s\n\n💡 *Untuk claim return, hubungi admin:* %s",
			ledger.ActiveInvestments, rupiah(ledger.DailyReturn), escape(b.adminContact))
	}
	return reply{text: fmt.Sprintf(`🎯 *Daily Claim*

👤 *User:* %s
💰 *Saldo:* %s
%s`,
		escape(user.FirstName),
		rupiah(user.Balance),
		status,
	)}, nil
}

func (b *Bot) referral(ctx context.Context, from telego.User, _ []string) (reply, error) {
	user, err := b.member(ctx, from)
	if err != nil || user == nil {
		return unknownUser(err)
	}
	referred, err := b.users.CountReferred(ctx, user.ReferralCode)
	if err != nil {
		return reply{}, err
	}

	share := fmt.Sprintf("`%s`", user.ReferralCode)
	if b.username != "" {
		share = escape(fmt.Sprintf("https://t.me/%s?start=%s", b.username, user.ReferralCode))
	}
	return reply{text: fmt.Sprintf(`👥 *Sistem Referral*

👤 *User:* %s
🆔 *Referral Code:* `+"`%s`"+`
👥 *Jumlah Referral:* %d
💰 *Bonus Referral:* %s

📱 *Bagikan referral code Anda:*
%s

💡 *Setiap user yang mendaftar menggunakan kode Anda akan mendapat bonus!*`,
		escape(user.FirstName),
		user.ReferralCode,
		referred,
		rupiah(user.ReferralBonus),
		share,
	)}, nil
}

func (b *Bot) profile(ctx context.Context, from telego.User, _ []string) (reply, error) {
	user, err := b.member(ctx, from)
	if err != nil || user == nil {
		return unknownUser(err)
	}

	var telegramID int64
	if user.TelegramID != nil {
		telegramID = *user.TelegramID
	}
	username := "Tidak ada"
	if user.Username != "" {
		username = "@" + user.Username
	}
	referred := "Tidak"
	if user.ReferredBy != "" {
		referred = "Ya"
	}
	status := "Tidak Aktif"
	if user.IsActive {
		status = "Aktif"
	}

	return reply{text: fmt.Sprintf(`👤 *Profil Pengguna*

🆔 *Telegram ID:* %d
👤 *Nama:* %s
📱 *Username:* %s
📧 *Email:* %s
📞 *Phone:* %s
💰 *Saldo:* %s
🆔 *Referral Code:* %s
👥 *Referred By:* %s
📅 *Terdaftar:* %s
📊 *Status:* %s`,
		telegramID,
		escape(user.FullName()),
		escape(username),
		escape(orNone(user.Email)),
		escape(orNone(user.Phone)),
		rupiah(user.Balance),
		user.ReferralCode,
		referred,
		user.CreatedAt.Format("02/01/2006"),
		status,
	)}, nil
}

// unknownUser turns a failed or empty member lookup into its reply.
func unknownUser(err error) (reply, error) {
	if err != nil {
		return reply{}, err
	}
	return reply{text: unknownUserText}, nil
}

func orNone(s string) string {
	if s == "" {
		return "Tidak ada"
	}
	return s
}
