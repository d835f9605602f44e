package domain

// MonthSet 月份集合，按位存储（bit 1 = 一月 ... bit 12 = 十二月）。
// 0 表示未设置，仅 seasonal 策略使用。
type MonthSet int16

// NewMonthSet 由月份列表构造，非法月份返回 ErrValidation
func NewMonthSet(months []int) (MonthSet, error) {
	var set MonthSet
	for _, m := range months {
		if m < 1 || m > 12 {
			return 0, ErrValidation
		}
		set |= 1 << m
	}
	return set, nil
}

// Contains 月份是否在集合内
func (s MonthSet) Contains(month int) bool {
	if month < 1 || month > 12 {
		return false
	}
	return s&(1<<month) != 0
}

// Months 展开为有序月份列表
func (s MonthSet) Months() []int {
	months := make([]int, 0, 12)
	for m := 1; m <= 12; m++ {
		if s.Contains(m) {
			months = append(months, m)
		}
	}
	return months
}
