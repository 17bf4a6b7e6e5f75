package exam

// Exam types
const (
	TypeCommonTest  = "共テ"
	TypeDescriptive = "記述"
	TypeOpen        = "オープン"
	TypeHigh12      = "高1/高2"
	TypeOther       = "その他"
)

var typesByCode = map[int]string{
	1: TypeCommonTest, 2: TypeCommonTest, 3: TypeCommonTest, 4: TypeCommonTest,
	5: TypeDescriptive, 6: TypeDescriptive, 7: TypeDescriptive,
	12: TypeOpen, 13: TypeOpen, 15: TypeOpen, 16: TypeOpen, 18: TypeOpen, 19: TypeOpen,
	21: TypeOpen, 22: TypeOpen, 24: TypeOpen, 25: TypeOpen, 27: TypeOpen, 31: TypeOpen,
	41: TypeOpen, 42: TypeOpen,
	61: TypeHigh12, 62: TypeHigh12, 63: TypeHigh12, 65: TypeHigh12, 66: TypeHigh12,
	71: TypeHigh12, 72: TypeHigh12, 73: TypeHigh12, 74: TypeHigh12,
}

// Classify derives the exam type from the vendor exam code.
func Classify(code int) string {
	if t, ok := typesByCode[code]; ok {
		return t
	}
	return TypeOther
}
