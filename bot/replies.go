package bot

import (
	"fmt"
	"strings"

	"gagstock-notifier/pkg/tracker"
)

const banner = "═══════════════════════════════"

const alreadyTrackingReply = "📡 You're already tracking GAG Stock! Use 'stop' to disable notifications."

const trackingStartedReply = `✅ **TRACKING ACTIVATED** ✅

🎮 You'll now receive GAG Stock updates!
🔔 Notifications will be sent automatically
📊 Real-time stock monitoring enabled

💡 Type 'stop' to disable notifications
💎 Type 'vip' for premium features`

const notTrackingReply = "⚠️ You don't have active tracking enabled."

const trackingStoppedReply = `🛑 **TRACKING STOPPED** 🛑

📴 Stock notifications disabled
👋 Thanks for using GAG Stock Bot!

💡 Type 'track' to re-enable notifications`

const vipRequiredReply = `🔒 **VIP FEATURE REQUIRED** 🔒

💎 This feature is exclusive to VIP members
🎯 Type 'vip' to request access

⭐ VIP members can add custom special items for monitoring!`

func helpReply(firstName string, special bool) string {
	vipCommands := ""
	if special {
		vipCommands = `
💎 **VIP COMMANDS:**
➕ **add [item]** - Add custom special item
➖ **remove [item]** - Remove custom item
📋 **list** - Show your special items
`
	}
	return fmt.Sprintf(`🌟 %[1]s 🌟
🤖 **WELCOME TO GAG STOCK BOT** 🤖
🌟 %[1]s 🌟

👋 Hello **%s**!

📋 **AVAILABLE COMMANDS:**

🔔 **track** - Start stock notifications
🛑 **stop** - Stop notifications
💎 **vip** - Request VIP access
ℹ️ **help** - Show this menu
%s
🌟 **VIP FEATURES:**
💎 Special items notifications (Godly, Advance, etc.)
⚡ Priority alerts for rare items
🎯 Custom special items tracking
🛠️ Personalized monitoring

🌟 %[1]s 🌟
💖 Enjoy your GAG Stock experience! 💖
🌟 %[1]s 🌟`, banner, firstName, vipCommands)
}

func unknownCommandReply(special bool) string {
	vipCommands := ""
	if special {
		vipCommands = `
💎 **add [item]** - Add custom special item
➖ **remove [item]** - Remove custom item
📋 **list** - Show your special items`
	}
	return fmt.Sprintf(`🤖 **COMMAND NOT RECOGNIZED** 🤖

💡 Available commands:
🔔 **track** - Start notifications
🛑 **stop** - Stop notifications
💎 **vip** - Request VIP access
ℹ️ **help** - Show help menu%s

Type 'help' for detailed information!`, vipCommands)
}

func invalidFormatReply(usage string) string {
	return fmt.Sprintf(`❌ **INVALID FORMAT** ❌

💡 Correct usage: %s
📝 Example: %s Rainbow Seed

🎯 The item name should match what appears in the stock!`,
		usage, strings.Fields(usage)[0])
}

func alreadyVIPReply(customTerms []string) string {
	return fmt.Sprintf(`💎 **YOU'RE ALREADY VIP!** 💎

🌟 Your VIP status is active
⚡ Enjoying special items notifications
🎯 Premium features unlocked

📋 **YOUR CUSTOM SPECIAL ITEMS:**
%s

💡 **VIP COMMANDS:**
➕ add [item] - Add custom item
➖ remove [item] - Remove item
📋 list - Show all your items

💖 Thank you for being a VIP member!`, bulletList(customTerms, ""))
}

func accessRequestAdminReply(name, userID, code string) string {
	return fmt.Sprintf(`🔑 **VIP ACCESS REQUEST** 🔑

👤 **User**: %s
🆔 **User ID**: %s
🎯 **Access Code**: %s

💬 Reply with: approve %[3]s
❌ Or ignore to deny access`, name, userID, code)
}

func accessRequestedReply(code string) string {
	return fmt.Sprintf(`💎 **VIP ACCESS REQUESTED** 💎

🎯 Your request has been sent to admin
🔑 **Access Code**: %s
⏰ Please wait for approval

🌟 **VIP BENEFITS:**
✨ Special items notifications
⚡ Priority alerts for rare items
🎯 Custom special items tracking
🛠️ Personalized monitoring

💌 You'll be notified once approved!`, code)
}

func invalidAccessCodeReply(code string) string {
	return fmt.Sprintf("❌ **INVALID ACCESS CODE** ❌\n\nCode: %s not found or expired.", code)
}

func accessApprovedAdminReply(name, userID, code string) string {
	return fmt.Sprintf(`✅ **VIP ACCESS APPROVED** ✅

👤 **User**: %s
🆔 **User ID**: %s
🎯 **Access Code**: %s

💎 User now has VIP privileges!`, name, userID, code)
}

func accessApprovedUserReply(name string) string {
	return fmt.Sprintf(`🎉 %[1]s 🎉
💎 **VIP ACCESS APPROVED!** 💎
🎉 %[1]s 🎉

🌟 **CONGRATULATIONS %s!** 🌟

💎 You are now a **VIP MEMBER**! 💎

🎯 **EXCLUSIVE BENEFITS UNLOCKED:**
✨ Special Items Notifications (Godly, Advance, Basic, Master, Beanstalk, Ember Lily)
⚡ Priority alerts for rare items
🚀 Lightning-fast notifications
🎮 Premium GAG Stock experience

🔔 **NOTIFICATIONS ACTIVATED**
You'll receive instant alerts when special items are in stock!

🎉 %[1]s 🎉
💖 **WELCOME TO VIP CLUB!** 💖
🎉 %[1]s 🎉`, banner, strings.ToUpper(name))
}

func termExistsReply(term string) string {
	return fmt.Sprintf(`⚠️ **ITEM ALREADY EXISTS** ⚠️

🎯 "%s" is already in your special items list
📋 Type 'list' to see all your items`, term)
}

func termAddedReply(term string, total int) string {
	return fmt.Sprintf(`✅ **ITEM ADDED SUCCESSFULLY** ✅

➕ **Added**: "%s"
🔔 You'll now receive notifications when this item is in stock!

📊 **Total Custom Items**: %d
📋 Type 'list' to see all your special items`, term, total)
}

func termNotFoundReply(term string) string {
	return fmt.Sprintf(`❌ **ITEM NOT FOUND** ❌

🎯 "%s" is not in your special items list
📋 Type 'list' to see all your items`, term)
}

func termRemovedReply(term string, remaining int) string {
	return fmt.Sprintf(`✅ **ITEM REMOVED SUCCESSFULLY** ✅

➖ **Removed**: "%s"
🔕 No more notifications for this item

📊 **Remaining Custom Items**: %d
📋 Type 'list' to see your current items`, term, remaining)
}

func termListReply(customTerms []string) string {
	defaults := make([]string, 0, len(tracker.DefaultWatchTerms))
	for _, term := range tracker.DefaultWatchTerms {
		defaults = append(defaults, fmt.Sprintf("• %s (Default)", term))
	}
	return fmt.Sprintf(`📋 **YOUR SPECIAL ITEMS LIST** 📋

🎯 **DEFAULT SPECIAL ITEMS:**
%s

✨ **YOUR CUSTOM ITEMS:**
%s

📊 **Total**: %d items monitored

💡 **COMMANDS:**
➕ add [item] - Add new item
➖ remove [item] - Remove item`,
		strings.Join(defaults, "\n"),
		bulletList(customTerms, " (Custom)"),
		len(tracker.DefaultWatchTerms)+len(customTerms))
}

func bulletList(terms []string, suffix string) string {
	if len(terms) == 0 {
		return "• None added yet"
	}
	lines := make([]string, 0, len(terms))
	for _, term := range terms {
		lines = append(lines, "• "+term+suffix)
	}
	return strings.Join(lines, "\n")
}
