package xmsi

// The templates below reproduce the XMI-MSIM 1.0 input layout. Fragments are
// rendered innermost first (element -> layer, source) and spliced into the body
// as pre-rendered strings, so whitespace here is significant.

// DTD is the document type the simulator validates input files against.
const DTD = "http://www.xmi.UGent.be/xml/xmimsim-1.0.dtd"

const headerTemplate = `<?xml version="1.0"?>
<!DOCTYPE xmimsim SYSTEM "{{.DTD}}">
<!--DO NOT MODIFY THIS FILE UNLESS YOU KNOW WHAT YOU ARE DOING!-->
<xmimsim>
 <general version="1.0">
  <outputfile>{{xml .Output}}</outputfile>
`

const bodyTemplate = `  <n_photons_interval>{{.Doc.NPhotonsInterval}}</n_photons_interval>
  <n_photons_line>{{.Doc.NPhotonsLine}}</n_photons_line>
  <n_interactions_trajectory>{{.Doc.NInteractionsTrajectory}}</n_interactions_trajectory>
  <comments/>
 </general>
 <composition>{{.Layers}}
  <reference_layer>{{.Doc.ReferenceLayer}}</reference_layer>
 </composition>
 <geometry>
  <d_sample_source>{{num .Doc.DSampleSource}}</d_sample_source>
  <n_sample_orientation>
   <x>{{num .Doc.SampleOrientation.X}}</x>
   <y>{{num .Doc.SampleOrientation.Y}}</y>
   <z>{{num .Doc.SampleOrientation.Z}}</z>
  </n_sample_orientation>
  <p_detector_window>
   <x>{{num .Doc.DetectorWindow.X}}</x>
   <y>{{num .Doc.DetectorWindow.Y}}</y>
   <z>{{num .Doc.DetectorWindow.Z}}</z>
  </p_detector_window>
  <n_detector_orientation>
   <x>{{num .Doc.DetectorOrientation.X}}</x>
   <y>{{num .Doc.DetectorOrientation.Y}}</y>
   <z>{{num .Doc.DetectorOrientation.Z}}</z>
  </n_detector_orientation>
  <area_detector>{{num .Doc.AreaDetector}}</area_detector>
  <collimator_height>{{num .Doc.CollimatorHeight}}</collimator_height>
  <collimator_diameter>{{num .Doc.CollimatorDiameter}}</collimator_diameter>
  <d_source_slit>{{num .Doc.DSourceSlit}}</d_source_slit>
  <slit_size>
   <slit_size_x>{{num .Doc.SlitSizeX}}</slit_size_x>
   <slit_size_y>{{num .Doc.SlitSizeY}}</slit_size_y>
  </slit_size>
 </geometry>
 <excitation>{{.Sources}}
 </excitation>
 <absorbers>
  <excitation_path>{{.ExcitationPath}}
  </excitation_path>
  <detector_path>{{.DetectorPath}}
  </detector_path>
 </absorbers>
 <detector>
  <detector_type>{{xml .Doc.DetectorType}}</detector_type>
  <live_time>{{num .Doc.LiveTime}}</live_time>
  <pulse_width>{{num .Doc.PulseWidth}}</pulse_width>
  <nchannels>{{.Doc.NChannels}}</nchannels>
  <gain>{{num .Doc.Gain}}</gain>
  <zero>{{num .Doc.Zero}}</zero>
  <fano>{{num .Doc.Fano}}</fano>
  <noise>{{num .Doc.Noise}}</noise>
  <crystal>{{.Crystal}}
  </crystal>
 </detector>
</xmimsim>
`

const sourceTemplate = `
  <discrete{{if .Distribution}} distribution_type="{{.Distribution}}"{{end}}>
   <energy>{{num .Energy}}</energy>
   <horizontal_intensity>{{num .HorizontalIntensity}}</horizontal_intensity>
   <vertical_intensity>{{num .VerticalIntensity}}</vertical_intensity>
   <sigma_x>{{num .SigmaX}}</sigma_x>
   <sigma_xp>{{num .SigmaXP}}</sigma_xp>
   <sigma_y>{{num .SigmaY}}</sigma_y>
   <sigma_yp>{{num .SigmaYP}}</sigma_yp>{{if .Distribution}}
   <scale_parameter>{{num .Scale}}</scale_parameter>{{end}}
  </discrete>`

const layerTemplate = `
   <layer>{{.Elements}}
    <density>{{num .Density}}</density>
    <thickness>{{num .Thickness}}</thickness>
   </layer>`

const elementTemplate = `
    <element>
     <atomic_number>{{.Z}}</atomic_number>
     <weight_fraction>{{num .Weight}}</weight_fraction>
    </element>`
