package redisstore

import goredis "github.com/redis/go-redis/v9"

// KEYS[1] entry, KEYS[2] eviction index
// ARGV[1] payload, ARGV[2] ttl seconds (0 = none), ARGV[3] limit (0 = unbounded)
//
// Scores come from the server clock so writers with skewed clocks still
// agree on insertion order. Returns the number of evicted entries.
const storeAndEvictSrc = `
if tonumber(ARGV[2]) > 0 then
  redis.call('SETEX', KEYS[1], ARGV[2], ARGV[1])
else
  redis.call('SET', KEYS[1], ARGV[1])
end
local limit = tonumber(ARGV[3])
if limit <= 0 then
  return 0
end
local t = redis.call('TIME')
local score = tonumber(t[1]) + tonumber(t[2]) / 1000000
redis.call('ZADD', KEYS[2], score, KEYS[1])
local over = tonumber(redis.call('ZCOUNT', KEYS[2], '-inf', '+inf')) - limit
if over <= 0 then
  return 0
end
local popped = redis.call('ZPOPMIN', KEYS[2], over)
local stale = {}
for i = 1, #popped, 2 do
  stale[#stale + 1] = popped[i]
end
for i = 1, #stale, 1000 do
  redis.call('DEL', unpack(stale, i, math.min(i + 999, #stale)))
end
return #stale
`

func newStoreAndEvict() *goredis.Script {
	return goredis.NewScript(storeAndEvictSrc)
}
