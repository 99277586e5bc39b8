package slicebox

const (
	luaAppendRecords = `
		-- Atomically append records to list with sequence consistency check
		-- KEYS[1] = record list key
		-- ARGV[1] = expected sequence (current list length)
		-- ARGV[2..N] = record data (JSON)
		-- Returns: {1, newLength} on success, or {0, currentLength, newRecords}

		local currentLen = redis.call('LLEN', KEYS[1])
		local expected = tonumber(ARGV[1])

		if expected ~= currentLen then
			if expected < currentLen then
				local newRecords = redis.call('LRANGE', KEYS[1], expected, -1)
				return {0, currentLen, newRecords}
			end
			return {0, currentLen, {}}
		end

		local chunkSize = 128
		local startIdx = 2

		while startIdx <= #ARGV do
			local endIdx = math.min(startIdx + chunkSize - 1, #ARGV)
			local chunk = {}
			for i = startIdx, endIdx do
				table.insert(chunk, ARGV[i])
			end
			redis.call('RPUSH', KEYS[1], unpack(chunk))
			startIdx = endIdx + 1
		end

		return {1, redis.call('LLEN', KEYS[1])}
		`

	luaLoadRecords = `
		-- Get records from list starting at a given sequence
		-- KEYS[1] = record list key
		-- ARGV[1] = starting sequence (0-based)

		local fromSeq = tonumber(ARGV[1])
		return redis.call('LRANGE', KEYS[1], fromSeq, -1)
		`
)
