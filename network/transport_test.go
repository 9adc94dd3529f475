package network

import (
	"testing"

	utls "github.com/refraction-networking/utls"
	. "github.com/smartystreets/goconvey/convey"
)

func alpn(spec *utls.ClientHelloSpec) (protos []string, alps bool) {
	for _, ext := range spec.Extensions {
		switch ext := ext.(type) {
		case *utls.ALPNExtension:
			protos = ext.AlpnProtocols
		case *utls.ApplicationSettingsExtension, *utls.ApplicationSettingsExtensionNew:
			alps = true
		}
	}
	return protos, alps
}

func TestHelloSpec(t *testing.T) {
	Convey("Given the Chrome client hello", t, func() {
		preset, err := utls.UTLSIdToSpec(utls.HelloChrome_120)
		So(err, ShouldBeNil)

		Convey("The HTTP/1.1 fallback should not offer h2", func() {
			spec, err := helloSpec([]string{"http/1.1"})
			So(err, ShouldBeNil)

			protos, alps := alpn(spec)
			So(protos, ShouldResemble, []string{"http/1.1"})
			So(alps, ShouldBeFalse)
			So(len(spec.Extensions), ShouldEqual, len(preset.Extensions)-1)
		})

		Convey("Offering h2 should keep the rest of the fingerprint", func() {
			spec, err := helloSpec([]string{"h2", "http/1.1"})
			So(err, ShouldBeNil)

			protos, alps := alpn(spec)
			So(protos, ShouldResemble, []string{"h2", "http/1.1"})
			So(alps, ShouldBeTrue)
			So(spec.Extensions, ShouldHaveLength, len(preset.Extensions))
			So(spec.CipherSuites, ShouldResemble, preset.CipherSuites)
		})
	})
}
