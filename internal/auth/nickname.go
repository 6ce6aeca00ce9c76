package auth

import (
	"math/rand/v2"
)

// 昵称词库
var (
	adjectives = []string{
		"勇敢的", "聪明的", "快乐的", "神秘的", "酷炫的",
		"优雅的", "可爱的", "威武的", "沉稳的", "活泼的",
		"机智的", "潇洒的", "淡定的", "闪亮的", "高冷的",
	}

	nouns = []string{
		"黑桃", "红心", "方块", "梅花", "王牌",
		"熊猫", "老虎", "狐狸", "海豚", "企鹅",
		"柯基", "柴犬", "龙猫", "松鼠", "羊驼",
	}
)

// GenerateNickname 令牌里没有昵称时生成随机昵称
func GenerateNickname() string {
	return adjectives[rand.IntN(len(adjectives))] + nouns[rand.IntN(len(nouns))]
}
