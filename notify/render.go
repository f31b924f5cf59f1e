package notify

import (
	"fmt"
	"strings"
	"time"

	"gagstock-notifier/stock"
	"gagstock-notifier/weather"
)

const banner = "═══════════════════════════════"

// categoryLabels and categoryEmojis define the digest section headings in
// render order.
var (
	categoryLabels = map[stock.CategoryKey]string{
		stock.Gear:              "GEAR",
		stock.Seed:              "SEEDS",
		stock.Egg:               "EGGS",
		stock.Cosmetics:         "COSMETICS",
		stock.Event:             "EVENT",
		stock.TravelingMerchant: "TRAVELING MERCHANT",
	}
	categoryEmojis = map[stock.CategoryKey]string{
		stock.Gear:              "🛠️",
		stock.Seed:              "🌱",
		stock.Egg:               "🥚",
		stock.Cosmetics:         "🎨",
		stock.Event:             "🎉",
		stock.TravelingMerchant: "🚚",
	}
)

// manilaTime formats t in the Asia/Manila zone the way digests display it.
func manilaTime(t time.Time) string {
	loc, err := time.LoadLocation("Asia/Manila")
	if err != nil {
		loc = time.FixedZone("PHT", 8*3600)
	}
	return t.In(loc).Format("02 Jan 2006, 3:04:05 PM")
}

// RenderDigest builds the full stock digest text. It returns "" when every
// category is empty after filtering, which callers treat as nothing to send.
// report may be nil; the digest simply omits the weather block.
func RenderDigest(snap *stock.Snapshot, report *weather.Report, now time.Time) string {
	var sections []string
	for _, key := range stock.CategoryKeys {
		if section := renderSection(key, snap.Category(key)); section != "" {
			sections = append(sections, section)
		}
	}
	if len(sections) == 0 {
		return ""
	}

	weatherInfo := ""
	if report != nil {
		weatherInfo = fmt.Sprintf("🌤️ **Weather**: %s %s\n📋 %s\n🎯 %s\n\n",
			report.Icon, report.WeatherType, report.Description, report.CropBonuses)
	}

	return fmt.Sprintf(`🌾 %[1]s 🌾
🎮 **GROW A GARDEN STOCK TRACKER** 🎮
🌾 %[1]s 🌾

%s%s

📅 **Updated**: %s (PH Time)
🌾 %[1]s 🌾`,
		banner, weatherInfo, strings.Join(sections, "\n\n"), manilaTime(now))
}

// renderSection renders one category block, or "" when no item is in stock.
func renderSection(key stock.CategoryKey, cat stock.Category) string {
	emoji := categoryEmojis[key]

	var lines []string
	for _, item := range cat.Items {
		if !item.InStock() {
			continue
		}
		itemEmoji := item.Emoji
		if itemEmoji == "" {
			itemEmoji = emoji
		}
		lines = append(lines, fmt.Sprintf("• %s %s: %s", itemEmoji, item.Name, stock.FormatQuantity(item.Quantity)))
	}
	if len(lines) == 0 {
		return ""
	}

	section := fmt.Sprintf("%s **%s**\n%s", emoji, categoryLabels[key], strings.Join(lines, "\n"))
	if cat.Countdown != "" {
		section += "\n⏳ Restock: " + cat.Countdown
	}
	return section
}

// RenderAlert builds the special-items alert text for the matched items.
func RenderAlert(items []stock.Item) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		emoji := item.Emoji
		if emoji == "" {
			emoji = "🎯"
		}
		lines = append(lines, fmt.Sprintf("✨ %s **%s** - %s", emoji, item.Name, stock.FormatQuantity(item.Quantity)))
	}

	return fmt.Sprintf(`🌟 %[1]s 🌟
🎯 **VIP SPECIAL ITEMS ALERT** 🎯
🌟 %[1]s 🌟

💎 **RARE ITEMS IN STOCK** 💎

%s

⚡ **HURRY! Limited quantities available!** ⚡
🛒 Get them before they're gone!

🌟 %[1]s 🌟
💖 VIP Exclusive Notification 💖
🌟 %[1]s 🌟`,
		banner, strings.Join(lines, "\n"))
}
