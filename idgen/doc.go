// Package idgen provides named identifier generation strategies.
//
// Callers pick one strategy per entity type:
//
//	reg := idgen.NewRegistry(sf)
//	id, err := reg.Generate(idgen.StrategyMD5)
//
// The snowflake strategies delegate to a [Snowflake] instance, which packs a
// millisecond timestamp, a node identifier and a per-millisecond sequence into
// a 64-bit integer:
//
//	| 1 bit unused | 41 bits millis since epoch | 10 bits node | 12 bits sequence |
//
// Snowflake ids from one instance are unique and non-decreasing. Instances with
// distinct node ids never collide.
//
// # Clock rollback
//
// When the clock moves backward by no more than [SnowflakeConfig.MaxClockRollback]
// the generator waits for it to catch up. Larger rollbacks fail immediately with
// a [*ClockRollbackError].
package idgen
