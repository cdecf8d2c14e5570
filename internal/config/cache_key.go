package config

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ExamResetLockKey returns the key of the lease held while an archive/reset runs.
func (r *CacheKeyStruct) ExamResetLockKey() string {
	return "exam:reset:lock"
}

var CacheKey = NewCacheKeyStruct()
