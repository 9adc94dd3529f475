package hls

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

const mediaPlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:10
#EXT-X-MEDIA-SEQUENCE:4
#EXTINF:9.009,
seg0.ts
#EXTINF:9.009,
/abs/seg1.ts?token=abc
#EXTINF:3.003,
https://other.example.com/seg2.ts
#EXT-X-ENDLIST
`

const masterPlaylist = `#EXTM3U
#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=640x360,CODECS="avc1.4d401e,mp4a.40.2"
360/index.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=2800000,RESOLUTION=1280x720
720/index.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=5000000,RESOLUTION=1920x1080
1080/index.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=6500000,RESOLUTION=1920x1080
1080hi/index.m3u8
`

func TestParse(t *testing.T) {
	Convey("Given a media playlist", t, func() {
		p, err := ParseString(mediaPlaylist, "https://cdn.example.com/show/ep1/index.m3u8")
		So(err, ShouldBeNil)

		Convey("It should enumerate segments in order", func() {
			So(p.IsVariant, ShouldBeFalse)
			So(p.Segments, ShouldHaveLength, 3)
			for i, s := range p.Segments {
				So(s.Ordinal, ShouldEqual, i)
			}
		})

		Convey("It should resolve URIs against the playlist location", func() {
			So(p.Segments[0].URI, ShouldEqual, "https://cdn.example.com/show/ep1/seg0.ts")
			So(p.Segments[1].URI, ShouldEqual, "https://cdn.example.com/abs/seg1.ts?token=abc")
			So(p.Segments[2].URI, ShouldEqual, "https://other.example.com/seg2.ts")
		})

		Convey("It should read the playlist tags", func() {
			So(p.TargetDuration, ShouldEqual, 10)
			So(p.MediaSequence, ShouldEqual, 4)
			So(p.EndList, ShouldBeTrue)
			So(p.Encrypted, ShouldBeFalse)
			So(p.Duration(), ShouldAlmostEqual, 21.021, 0.0001)
		})
	})

	Convey("Given a master playlist", t, func() {
		p, err := ParseString(masterPlaylist, "https://cdn.example.com/show/ep1/master.m3u8")
		So(err, ShouldBeNil)

		Convey("It should be flagged as a variant playlist", func() {
			So(p.IsVariant, ShouldBeTrue)
			So(p.Segments, ShouldBeEmpty)
			So(p.Variants, ShouldHaveLength, 4)
		})

		Convey("It should parse quoted attributes", func() {
			So(p.Variants[0].Codecs, ShouldEqual, "avc1.4d401e,mp4a.40.2")
			So(p.Variants[0].Height, ShouldEqual, 360)
			So(p.Variants[0].URI, ShouldEqual, "https://cdn.example.com/show/ep1/360/index.m3u8")
		})

		Convey("SelectVariant", func() {
			Convey("Should pick the closest resolution", func() {
				v, ok := p.SelectVariant(720)
				So(ok, ShouldBeTrue)
				So(v.Height, ShouldEqual, 720)

				v, _ = p.SelectVariant(480)
				So(v.Height, ShouldEqual, 360)
			})

			Convey("Should prefer the higher bandwidth on ties", func() {
				v, _ := p.SelectVariant(1080)
				So(v.Bandwidth, ShouldEqual, 6500000)
			})

			Convey("Should pick the highest bandwidth without a resolution", func() {
				v, _ := p.SelectVariant(0)
				So(v.URI, ShouldEndWith, "1080hi/index.m3u8")
			})

			Convey("Should report no variants on media playlists", func() {
				_, ok := (&Playlist{}).SelectVariant(720)
				So(ok, ShouldBeFalse)
			})
		})
	})

	Convey("Given an encrypted playlist", t, func() {
		p, err := ParseString("#EXTM3U\n#EXT-X-KEY:METHOD=AES-128,URI=\"key.bin\"\n#EXTINF:4,\na.ts\n", "https://x.example.com/a.m3u8")
		So(err, ShouldBeNil)
		So(p.Encrypted, ShouldBeTrue)
	})

	Convey("Given an fMP4 playlist", t, func() {
		p, err := ParseString("#EXTM3U\n#EXT-X-MAP:URI=\"init.mp4\"\n#EXTINF:4,\na.m4s\n#EXT-X-MAP:URI=\"init.mp4\"\n#EXTINF:4,\nb.m4s\n", "https://x.example.com/hls/a.m3u8")
		So(err, ShouldBeNil)
		So(p.Init, ShouldNotBeNil)
		So(p.Init.URI, ShouldEqual, "https://x.example.com/hls/init.mp4")
		So(p.InitSections, ShouldEqual, 1)
		So(p.ByteRange, ShouldBeFalse)
		So(p.Segments, ShouldHaveLength, 2)

		p, err = ParseString("#EXTM3U\n#EXT-X-MAP:URI=\"init.mp4\",BYTERANGE=\"720@0\"\n#EXTINF:4,\na.m4s\n", "https://x.example.com/hls/a.m3u8")
		So(err, ShouldBeNil)
		So(p.ByteRange, ShouldBeTrue)
	})

	Convey("Given a document that is not a playlist", t, func() {
		_, err := ParseString("<html>blocked</html>", "https://x.example.com/a.m3u8")
		So(err, ShouldEqual, ErrNotPlaylist)

		_, err = ParseString("", "https://x.example.com/a.m3u8")
		So(err, ShouldEqual, ErrNotPlaylist)
	})
}
