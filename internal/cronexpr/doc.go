// Package cronexpr compiles five-field cron expressions into bitmasks and
// computes next-fire deadlines from them.
//
// Fields are "minute hour day month weekday" with ranges 0-59, 0-23, 1-31,
// 1-12 and 0-6 (0 is Sunday). Each field is a comma list of "*", "*/step",
// "a-b" or a bare number. Expressions starting with "@" (for example
// "@hourly" or "@every 90m") are descriptors and are handled by
// github.com/robfig/cron/v3 behind the same Expression interface.
package cronexpr
