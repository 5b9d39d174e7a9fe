package davxml

// Request bodies sent to the server. These are fixed strings; nothing in
// them varies per request.
const (
	// BodyStat asks for the properties needed to fill a stat.
	BodyStat = "<?xml version=\"1.0\" encoding=\"utf-8\"?>\n" +
		"<D:propfind xmlns:D=\"DAV:\">\n" +
		"<D:prop>\n" +
		"<D:getlastmodified/>\n" +
		"<D:getcontentlength/>\n" +
		"<D:resourcetype/>\n" +
		"</D:prop>\n" +
		"</D:propfind>\n"

	// BodyResourceType asks only for the resource type; used with Depth 1
	// to count a directory's children.
	BodyResourceType = "<?xml version=\"1.0\" encoding=\"utf-8\"?>\n" +
		"<D:propfind xmlns:D=\"DAV:\">\n" +
		"<D:prop>\n" +
		"<D:resourcetype/>\n" +
		"</D:prop>\n" +
		"</D:propfind>\n"

	// BodyStatFS asks for the quota properties.
	BodyStatFS = "<?xml version=\"1.0\" encoding=\"utf-8\"?>\n" +
		"<D:propfind xmlns:D=\"DAV:\">\n" +
		"<D:prop>\n" +
		"<D:quota/>\n" +
		"<D:quotaused/>\n" +
		"</D:prop>\n" +
		"</D:propfind>\n"

	// BodyCacheValidators asks for the validators a conditional GET needs.
	BodyCacheValidators = "<?xml version=\"1.0\" encoding=\"utf-8\"?>\n" +
		"<D:propfind xmlns:D=\"DAV:\">\n" +
		"<D:prop>\n" +
		"<D:getlastmodified/>\n" +
		"<D:getetag/>\n" +
		"</D:prop>\n" +
		"</D:propfind>\n"

	// BodyReadDir is BodyStat sent with Depth 1.
	BodyReadDir = BodyStat

	// BodyReadDirExtended additionally asks for the resource-fork header
	// blob so directory listings can seed the attribute cache.
	BodyReadDirExtended = "<?xml version=\"1.0\" encoding=\"utf-8\"?>\n" +
		"<D:propfind xmlns:D=\"DAV:\">\n" +
		"<D:prop xmlns:A=\"http://www.apple.com/webdav_fs/props/\">\n" +
		"<D:getlastmodified/>\n" +
		"<D:getcontentlength/>\n" +
		"<D:resourcetype/>\n" +
		"<A:appledoubleheader/>\n" +
		"</D:prop>\n" +
		"</D:propfind>\n"

	// BodyLock requests an exclusive write lock.
	BodyLock = "<?xml version=\"1.0\" encoding=\"utf-8\"?>\n" +
		"<D:lockinfo xmlns:D=\"DAV:\">\n" +
		"<D:lockscope><D:exclusive/></D:lockscope>\n" +
		"<D:locktype><D:write/></D:locktype>\n" +
		"<D:owner>\n" +
		"<D:href>http://www.apple.com/webdav_fs/</D:href>\n" +
		"</D:owner>\n" +
		"</D:lockinfo>\n"
)
