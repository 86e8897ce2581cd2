package construct

import "github.com/cory-johannsen/construct/internal/chain"

// NoticeKind enumerates the fixed text notices the Construct sends.
type NoticeKind int

const (
	NoticeCooldown NoticeKind = iota + 1
	NoticeFirstBlood
	NoticeVictory
	NoticeCounterDebuff
	NoticeCounterBuff
	NoticeBreachLimit
	NoticeHealer
	NoticeDefeated
	NoticeNotActive
	NoticeAlreadyDefeated
	NoticeInsufficientReward
	NoticeRewardShortage
	NoticeUnregisteredToken
	NoticeCollectibleMissing
	NoticeFirstBloodBonus
)

var noticeText = map[NoticeKind]string{
	NoticeCooldown:           "COOLDOWN: Attack too soon! Wait a few blocks. Penalty applied.",
	NoticeFirstBlood:         "FIRST BLOOD! You struck first and claimed a bonus reward on defeat!",
	NoticeVictory:            "VICTORY! Construct defeated! You dealt the final blow. You got the bonus.",
	NoticeCounterDebuff:      "COUNTER ATTACK! Construct strikes back. Next attack reduced.",
	NoticeCounterBuff:        "BERSERK! Adrenaline pure. Next attack is stronger.",
	NoticeBreachLimit:        "BREACH LIMIT: Construct armor absorbed excess damage!",
	NoticeHealer:             "HEALING: Construct recovered hitpoints!",
	NoticeDefeated:           "DEFEATED: Construct was defeated!",
	NoticeNotActive:          "Construct is not active!",
	NoticeAlreadyDefeated:    "Construct is defeated!",
	NoticeInsufficientReward: "Insufficient XP Tokens!",
	NoticeRewardShortage:     "XP Token Shortage",
	NoticeUnregisteredToken:  "Unregistered Token detected!",
	NoticeCollectibleMissing: "Nft does not exist",
	NoticeFirstBloodBonus:    "First Blood Bonus",
}

// Text returns the notice's fixed message.
func (k NoticeKind) Text() string {
	if s, ok := noticeText[k]; ok {
		return s
	}
	return "unknown notice"
}

// String implements fmt.Stringer.
func (k NoticeKind) String() string { return k.Text() }

// Notice builds the chain notice, carrying amount for display.
func (k NoticeKind) Notice(amount int64) chain.Notice {
	return chain.Notice{Text: k.Text(), Amount: amount}
}
