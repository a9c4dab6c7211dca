package types

// StringPtr 返回字符串指针，用于构造用户配置
func StringPtr(s string) *string { return &s }

// IntPtr 返回 int 指针
func IntPtr(i int) *int { return &i }

// BoolPtr 返回 bool 指针
func BoolPtr(b bool) *bool { return &b }

// Uint64Ptr 返回 uint64 指针
func Uint64Ptr(u uint64) *uint64 { return &u }
